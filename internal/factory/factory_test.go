package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thekoushikdurgas/diary/internal/auth"
	"github.com/thekoushikdurgas/diary/internal/config"
	"github.com/thekoushikdurgas/diary/internal/model"
)

func TestBuild_SQLite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.NewForTesting()
	c, err := Build(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)

	assert.Nil(t, c.AuthClient)
	assert.Nil(t, c.Authenticator)

	it, err := c.Library.AddItem(ctx, "user-1", model.NewTextDraft("buy milk"))
	require.NoError(t, err)
	assert.Equal(t, "buy milk", it.Content)

	items, err := c.Library.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	// enrichment fails without an API key; Close still drains the job
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	require.NoError(t, c.Close(closeCtx))
}

func TestNewStore_UnknownDriver(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "mysql"
	_, err := NewStore(context.Background(), cfg, nil, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown DB_DRIVER")
}

func TestNewAuthenticator(t *testing.T) {
	cfg := config.NewForTesting()

	_, err := NewAuthenticator(cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrNotConfigured))

	cfg.AuthURL = "http://127.0.0.1:9999"
	client, err := NewAuthClient(cfg)
	require.NoError(t, err)
	require.NotNil(t, client)
	a, err := NewAuthenticator(cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &auth.RemoteAuthenticator{}, a)

	cfg.JWTSecret = "secret"
	a, err = NewAuthenticator(cfg, client)
	require.NoError(t, err)
	assert.IsType(t, &auth.JWTAuthenticator{}, a)
}

func TestNewMedia_InlineWithoutBucket(t *testing.T) {
	r, err := NewMedia(context.Background(), config.NewForTesting(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, r)

	d := model.NewTextDraft("hello")
	out, err := r.Offload(context.Background(), "user-1", d)
	require.NoError(t, err)
	assert.Equal(t, d.Content, out.Content)
}
