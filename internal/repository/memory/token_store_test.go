package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

func TestStore_GetSetClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, ok, err := s.Get(ctx, domainsession.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, domainsession.KeyAccessToken, "a1"))
	require.NoError(t, s.Set(ctx, domainsession.KeyAccessToken, "a2"))
	require.NoError(t, s.Set(ctx, domainsession.KeyRefreshToken, "r1"))
	require.NoError(t, s.Set(ctx, domainsession.KeyUser, `{"id":1}`))

	v, ok, err := s.Get(ctx, domainsession.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a2", v)

	require.NoError(t, s.Clear(ctx, domainsession.Keys...))
	for _, k := range domainsession.Keys {
		_, ok, _ := s.Get(ctx, k)
		assert.False(t, ok, k)
	}
}

func TestStore_ClearIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Set(ctx, domainsession.KeyAccessToken, "a"))
	require.NoError(t, s.Set(ctx, domainsession.KeyRefreshToken, "r"))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.Clear(ctx, domainsession.Keys...)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.mu.RLock()
			_, a := s.data[domainsession.KeyAccessToken]
			_, r := s.data[domainsession.KeyRefreshToken]
			s.mu.RUnlock()
			assert.Equal(t, a, r)
		}
	}()
	wg.Wait()
}

func TestStore_SetAllLastWins(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.SetAll(ctx,
		domainsession.Entry{Key: domainsession.KeyAccessToken, Value: "a1"},
		domainsession.Entry{Key: domainsession.KeyAccessToken, Value: "a2"},
		domainsession.Entry{Key: domainsession.KeyRefreshToken, Value: "r1"},
	))
	v, ok, err := s.Get(ctx, domainsession.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a2", v)
}
