package session

import (
	"context"
	"errors"
	"sync/atomic"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/repository/memory"
)

var errStoreDown = errors.New("store down")

// faultyStore wraps a store and fails selected operations on demand.
type faultyStore struct {
	domainsession.Store
	failGet   atomic.Bool
	failSet   atomic.Bool
	failClear atomic.Bool
}

func newMemStore() domainsession.Store { return memory.NewStore() }

func (f *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet.Load() {
		return "", false, errStoreDown
	}
	return f.Store.Get(ctx, key)
}

func (f *faultyStore) Set(ctx context.Context, key, value string) error {
	if f.failSet.Load() {
		return errStoreDown
	}
	return f.Store.Set(ctx, key, value)
}

func (f *faultyStore) Clear(ctx context.Context, keys ...string) error {
	if f.failClear.Load() {
		return errStoreDown
	}
	return f.Store.Clear(ctx, keys...)
}
