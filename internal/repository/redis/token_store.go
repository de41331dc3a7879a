package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

type Config struct {
	URL    string        `mapstructure:"url"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Open parses a redis:// URL and fails fast when the server is unreachable.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// TokenStore keeps each entry under <prefix><profile>:<key>.
// Entries expire after ttl so an abandoned remembered session does not linger.
type TokenStore struct {
	rdb     redis.UniversalClient
	prefix  string
	profile string
	ttl     time.Duration
}

var _ domainsession.BatchStore = (*TokenStore)(nil)

func NewTokenStore(rdb redis.UniversalClient, cfg Config, profile string) *TokenStore {
	if cfg.Prefix == "" {
		cfg.Prefix = "sugu:session:"
	}
	if profile == "" {
		profile = "default"
	}
	return &TokenStore{rdb: rdb, prefix: cfg.Prefix, profile: profile, ttl: cfg.TTL}
}

func (s *TokenStore) key(k string) string { return s.prefix + s.profile + ":" + k }

func (s *TokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get %q: %w", domainsession.ErrStoreUnavailable, key, err)
	}
	return v, true, nil
}

// Set renews the TTL of every session key together with the written one, so
// the unit never expires piecemeal after a refresh.
func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	var err error
	if s.ttl <= 0 {
		err = s.rdb.Set(ctx, s.key(key), value, 0).Err()
	} else {
		_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, s.key(key), value, s.ttl)
			for _, k := range domainsession.Keys {
				if k != key {
					p.Expire(ctx, s.key(k), s.ttl)
				}
			}
			return nil
		})
	}
	if err != nil {
		return fmt.Errorf("%w: redis set %q: %w", domainsession.ErrStoreUnavailable, key, err)
	}
	return nil
}

// Clear issues a single DEL, which redis applies atomically.
func (s *TokenStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}
	if err := s.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: redis clear: %w", domainsession.ErrStoreUnavailable, err)
	}
	return nil
}

// SetAll writes the entries inside MULTI/EXEC.
func (s *TokenStore) SetAll(ctx context.Context, entries ...domainsession.Entry) error {
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, e := range entries {
			p.Set(ctx, s.key(e.Key), e.Value, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis set all: %w", domainsession.ErrStoreUnavailable, err)
	}
	return nil
}
