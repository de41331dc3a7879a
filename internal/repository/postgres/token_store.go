package postgres

import (
	"context"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

// TokenStore keeps one row per (profile, key) in session_entries.
// The profile separates several signed-in installations sharing a database.
type TokenStore struct {
	db      *DB
	tx      Transactor
	profile string
}

var _ domainsession.BatchStore = (*TokenStore)(nil)

func NewTokenStore(db *DB, tx Transactor, profile string) *TokenStore {
	if profile == "" {
		profile = "default"
	}
	return &TokenStore{db: db, tx: tx, profile: profile}
}

const (
	qSEGet = `
SELECT value FROM session_entries
WHERE profile = $1 AND key = $2;
`
	qSESet = `
INSERT INTO session_entries(profile, key, value, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`
	qSEClear = `
DELETE FROM session_entries WHERE profile = $1 AND key = ANY($2);
`
)

func (s *TokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	var v string
	if err := s.db.execQueryer(ctx).QueryRow(ctx, qSEGet, s.profile, key).Scan(&v); err != nil {
		if isNoRows(err) {
			return "", false, nil
		}
		return "", false, unavailable("get", key, err)
	}
	return v, true, nil
}

func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	if _, err := s.db.execQueryer(ctx).Exec(ctx, qSESet, s.profile, key, value); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.db.execQueryer(ctx).Exec(ctx, qSEClear, s.profile, keys); err != nil {
			return unavailable("clear", "*", err)
		}
		return nil
	})
}

// SetAll upserts every entry in one transaction.
func (s *TokenStore) SetAll(ctx context.Context, entries ...domainsession.Entry) error {
	ctx, cancel := s.db.withTimeout(ctx)
	defer cancel()

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		q := s.db.execQueryer(ctx)
		for _, e := range entries {
			if _, err := q.Exec(ctx, qSESet, s.profile, e.Key, e.Value); err != nil {
				return unavailable("set", e.Key, err)
			}
		}
		return nil
	})
}
