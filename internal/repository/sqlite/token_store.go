package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

const driverName = "sugu_sqlite3"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec(`
				PRAGMA busy_timeout = 5000;
				PRAGMA journal_mode = WAL;
				PRAGMA synchronous  = NORMAL;
			`, nil)
			return err
		},
	})
}

// Open opens (creating if needed) the session database at path.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, qSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return db, nil
}

const (
	qSchema = `
CREATE TABLE IF NOT EXISTS session_entries (
    profile    TEXT NOT NULL,
    key        TEXT NOT NULL,
    value      TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (profile, key)
);`
	qGet = `SELECT value FROM session_entries WHERE profile = ? AND key = ?;`
	qSet = `
INSERT INTO session_entries(profile, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(profile, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP;`
)

type TokenStore struct {
	db      *sql.DB
	profile string
}

var _ domainsession.BatchStore = (*TokenStore)(nil)

func NewTokenStore(db *sql.DB, profile string) *TokenStore {
	if profile == "" {
		profile = "default"
	}
	return &TokenStore{db: db, profile: profile}
}

func (s *TokenStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, qGet, s.profile, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: sqlite get %q: %w", domainsession.ErrStoreUnavailable, key, err)
	}
	return v, true, nil
}

func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, qSet, s.profile, key, value); err != nil {
		return fmt.Errorf("%w: sqlite set %q: %w", domainsession.ErrStoreUnavailable, key, err)
	}
	return nil
}

func (s *TokenStore) Clear(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, s.profile)
	for _, k := range keys {
		args = append(args, k)
	}
	q := `DELETE FROM session_entries WHERE profile = ? AND key IN (?` + strings.Repeat(",?", len(keys)-1) + `);`
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("%w: sqlite clear: %w", domainsession.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *TokenStore) SetAll(ctx context.Context, entries ...domainsession.Entry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: sqlite begin: %w", domainsession.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, e := range entries {
		if _, err = tx.ExecContext(ctx, qSet, s.profile, e.Key, e.Value); err != nil {
			return fmt.Errorf("%w: sqlite set %q: %w", domainsession.ErrStoreUnavailable, e.Key, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: sqlite commit: %w", domainsession.ErrStoreUnavailable, err)
	}
	return nil
}
