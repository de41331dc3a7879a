package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

func newStore(t *testing.T, ttl time.Duration) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewTokenStore(rdb, Config{Prefix: "test:", TTL: ttl}, "alice"), mr
}

func TestTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Hour)

	_, ok, err := s.Get(ctx, domainsession.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, domainsession.KeyAccessToken, "a1"))
	require.NoError(t, s.Set(ctx, domainsession.KeyRefreshToken, "r1"))

	v, ok, err := s.Get(ctx, domainsession.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", v)

	assert.True(t, mr.Exists("test:alice:access_token"))
	assert.Equal(t, time.Hour, mr.TTL("test:alice:access_token"))
}

func TestTokenStore_ClearRemovesWholeUnit(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 0)

	for _, k := range domainsession.Keys {
		require.NoError(t, s.Set(ctx, k, "v"))
	}
	require.NoError(t, mr.Set("test:bob:access_token", "other profile"))

	require.NoError(t, s.Clear(ctx, domainsession.Keys...))

	for _, k := range domainsession.Keys {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
	assert.True(t, mr.Exists("test:bob:access_token"))
}

func TestTokenStore_BackendDown(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 0)
	mr.Close()

	_, _, err := s.Get(ctx, domainsession.KeyAccessToken)
	assert.ErrorIs(t, err, domainsession.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Set(ctx, domainsession.KeyAccessToken, "x"), domainsession.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Clear(ctx, domainsession.Keys...), domainsession.ErrStoreUnavailable)
}

func TestTokenStore_SetAll(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Hour)

	require.NoError(t, s.SetAll(ctx,
		domainsession.Entry{Key: domainsession.KeyRefreshToken, Value: "r1"},
		domainsession.Entry{Key: domainsession.KeyAccessToken, Value: "a1"},
	))
	v, err := mr.Get("test:alice:refresh_token")
	require.NoError(t, err)
	assert.Equal(t, "r1", v)
	assert.Equal(t, time.Hour, mr.TTL("test:alice:access_token"))

	mr.Close()
	err = s.SetAll(ctx, domainsession.Entry{Key: domainsession.KeyUser, Value: "{}"})
	assert.ErrorIs(t, err, domainsession.ErrStoreUnavailable)
}

func TestTokenStore_SetKeepsUnitExpiringTogether(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 24*time.Hour)

	require.NoError(t, s.SetAll(ctx,
		domainsession.Entry{Key: domainsession.KeyRefreshToken, Value: "r1"},
		domainsession.Entry{Key: domainsession.KeyUser, Value: `{"id":1}`},
		domainsession.Entry{Key: domainsession.KeyAccessToken, Value: "a1"},
	))

	mr.FastForward(23 * time.Hour)
	require.NoError(t, s.Set(ctx, domainsession.KeyAccessToken, "a2"))
	mr.FastForward(2 * time.Hour)

	for _, k := range domainsession.Keys {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.True(t, ok, k)
	}

	mr.FastForward(23 * time.Hour)
	for _, k := range domainsession.Keys {
		_, ok, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, k)
	}
}

func TestTokenStore_SetWithoutTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 0)

	require.NoError(t, s.Set(ctx, domainsession.KeyRefreshToken, "r1"))
	assert.Zero(t, mr.TTL("test:alice:refresh_token"))
}
