package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%w: postgres %s %q: %w", domainsession.ErrStoreUnavailable, op, key, err)
}
