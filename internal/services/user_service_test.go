package services

import (
	"context"
	"testing"

	"market-chat/internal/repository/memory"
	market_errors "market-chat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile(t *testing.T) {
	store := memory.NewStore()
	u := seedUser(t, store, "Mina", "mina@example.com")
	users := NewUserService(store.Users())
	ctx := context.Background()

	name := "  Mina K "
	avatar := "https://cdn.example/mina.png"
	updated, err := users.UpdateProfile(ctx, u.ID, ProfileInput{Name: &name, AvatarURL: &avatar})
	require.NoError(t, err)
	assert.Equal(t, "Mina K", updated.Name)
	assert.Equal(t, avatar, updated.AvatarURL)

	blank := " "
	_, err = users.UpdateProfile(ctx, u.ID, ProfileInput{Name: &blank})
	assert.ErrorIs(t, err, market_errors.ErrInvalidInput)

	bad := "ftp://example.com/x.png"
	_, err = users.UpdateProfile(ctx, u.ID, ProfileInput{AvatarURL: &bad})
	assert.ErrorIs(t, err, market_errors.ErrInvalidInput)

	_, err = users.Me(ctx, 0)
	assert.ErrorIs(t, err, market_errors.ErrUnauthorized)
}
