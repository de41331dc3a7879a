package session

import (
	"context"
	"errors"
	"sync"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/repository/memory"
)

// Rememberer is implemented by stores that can switch backend per session.
type Rememberer interface {
	Remember(ctx context.Context, durable bool) error
}

// Storage routes the session to an ephemeral or a durable backend. The choice
// is made when a session starts and holds until the next one.
type Storage struct {
	mu        sync.RWMutex
	ephemeral domainsession.Store
	durable   domainsession.Store
	active    domainsession.Store
}

var (
	_ domainsession.BatchStore = (*Storage)(nil)
	_ Rememberer          = (*Storage)(nil)
)

// NewStorage accepts a nil durable store; remember-me then stays in memory.
func NewStorage(ephemeral, durable domainsession.Store) *Storage {
	if ephemeral == nil {
		ephemeral = memory.NewStore()
	}
	return &Storage{ephemeral: ephemeral, durable: durable, active: ephemeral}
}

// Remember selects the backend for the session being created and empties the other one.
func (s *Storage) Remember(ctx context.Context, durable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, other := s.ephemeral, s.durable
	if durable && s.durable != nil {
		target, other = s.durable, s.ephemeral
	}
	s.active = target
	if other == nil || other == target {
		return nil
	}
	return other.Clear(ctx, domainsession.Keys...)
}

// Restore picks up a session remembered by a previous run.
func (s *Storage) Restore(ctx context.Context) (bool, error) {
	if s.durable == nil {
		return false, nil
	}
	_, ok, err := s.durable.Get(ctx, domainsession.KeyRefreshToken)
	if err != nil || !ok {
		return false, err
	}
	s.mu.Lock()
	s.active = s.durable
	s.mu.Unlock()
	return true, nil
}

func (s *Storage) Durable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.durable != nil && s.active == s.durable
}

func (s *Storage) current() domainsession.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	return s.current().Get(ctx, key)
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.current().Set(ctx, key, value)
}

func (s *Storage) SetAll(ctx context.Context, entries ...domainsession.Entry) error {
	return setAll(ctx, s.current(), entries...)
}

// setAll uses the backend's batch write when it has one.
func setAll(ctx context.Context, st domainsession.Store, entries ...domainsession.Entry) error {
	if b, ok := st.(domainsession.BatchStore); ok {
		return b.SetAll(ctx, entries...)
	}
	for _, e := range entries {
		if err := st.Set(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Clear empties both backends so no stale session survives in either.
func (s *Storage) Clear(ctx context.Context, keys ...string) error {
	errE := s.ephemeral.Clear(ctx, keys...)
	var errD error
	if s.durable != nil {
		errD = s.durable.Clear(ctx, keys...)
	}
	return errors.Join(errE, errD)
}
