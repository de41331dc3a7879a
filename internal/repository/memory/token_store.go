package memory

import (
	"context"
	"sync"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

// Store keeps the session for the lifetime of the process only.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ domainsession.BatchStore = (*Store)(nil)

func NewStore() *Store { return &Store{data: make(map[string]string)} }

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.data, k)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) SetAll(_ context.Context, entries ...domainsession.Entry) error {
	s.mu.Lock()
	for _, e := range entries {
		s.data[e.Key] = e.Value
	}
	s.mu.Unlock()
	return nil
}
