package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	appconfig "market-chat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), S3Config{
		Region:     "us-east-1",
		Bucket:     "media",
		AccessKey:  "AKIDEXAMPLE",
		SecretKey:  "secret",
		Endpoint:   "http://localhost:9000",
		PublicBase: "https://cdn.example.com",
		PresignTTL: 5 * time.Minute,
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestPresignPut(t *testing.T) {
	c := testClient(t)

	raw, headers, err := c.PresignPut(context.Background(), "services/1/a.png", "image/png", 2048)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/media/services/1/a.png"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
	assert.Equal(t, "image/png", headers["Content-Type"])
	assert.Equal(t, "2048", headers["Content-Length"])

	_, _, err = c.PresignPut(context.Background(), "", "image/png", 1)
	assert.Error(t, err)
}

func TestFileURL(t *testing.T) {
	c := testClient(t)
	assert.Equal(t, "https://cdn.example.com/services/1/a.png", c.FileURL("services/1/a.png"))
	assert.Empty(t, c.FileURL(""))

	var nilClient *Client
	assert.Empty(t, nilClient.FileURL("x"))
}

func TestS3ConfigFrom(t *testing.T) {
	cfg := S3ConfigFrom(&appconfig.Config{
		S3Region:     "eu-west-1",
		S3Bucket:     "b",
		S3PublicBase: "https://cdn.example.com/",
		S3PresignMin: 15,
	})
	assert.Equal(t, "https://cdn.example.com", cfg.PublicBase)
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL)
}
