package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestGinMiddlewareLabelsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/services/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/services/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	body := scrape(t)
	assert.Contains(t, body, `market_chat_http_requests_total{method="GET",path="/api/services/:id",status="204"} 2`)
	assert.NotContains(t, body, `path="/api/services/1"`)
}

func TestRecorders(t *testing.T) {
	RecordSocketEvent("onSend", "ok")
	RecordSocketEvent("", "error")
	RecordJobRun("session_cleanup", 0, true)
	SocketConnected()
	SocketDisconnected()
	SocketFrameDropped()

	body := scrape(t)
	assert.Contains(t, body, `market_chat_socket_events_total{event="unknown",result="error"} 1`)
	assert.Contains(t, body, `market_chat_jobs_runs_total{job="session_cleanup",success="true"} 1`)
	assert.Contains(t, body, "market_chat_socket_connections 0")
}
