package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Transactor interface {
	WithTx(ctx context.Context, function func(ctx context.Context) error) error
}

var _ Transactor = (*transactorImpl)(nil)

type transactorImpl struct {
	db     *DB
	logger *zap.Logger
}

func NewTransactor(db *DB, logger *zap.Logger) Transactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &transactorImpl{
		db:     db,
		logger: logger.With(zap.String("component", "postgres.tx")),
	}
}

// WithTx joins a transaction already carried by ctx; only the outermost call commits.
func (t *transactorImpl) WithTx(ctx context.Context, function func(ctx context.Context) error) (txErr error) {
	ctxWithTx, tx, owner, err := injectTx(ctx, t.db)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if !owner {
			return
		}
		// rollback and commit must run even if the caller's ctx is already done
		endCtx := context.WithoutCancel(ctxWithTx)
		if txErr != nil {
			if err := tx.Rollback(endCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
				t.logger.Error("rollback", zap.Error(err))
			}
			return
		}
		if err := tx.Commit(endCtx); err != nil {
			t.logger.Error("commit", zap.Error(err))
			txErr = fmt.Errorf("commit: %w", err)
		}
	}()

	if err := function(ctxWithTx); err != nil {
		return err
	}
	return nil
}

type txInjector struct{}

var ErrTxNotFound = errors.New("tx not found in context")

func injectTx(ctx context.Context, db *DB) (context.Context, pgx.Tx, bool, error) {
	if tx, err := extractTx(ctx); err == nil {
		return ctx, tx, false, nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, nil, false, err
	}

	return context.WithValue(ctx, txInjector{}, tx), tx, true, nil
}

func extractTx(ctx context.Context) (pgx.Tx, error) {
	tx, ok := ctx.Value(txInjector{}).(pgx.Tx)
	if !ok {
		return nil, ErrTxNotFound
	}
	return tx, nil
}

type execQueryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (db *DB) execQueryer(ctx context.Context) execQueryer {
	if tx, err := extractTx(ctx); err == nil && tx != nil {
		return tx
	}
	return db.Pool
}
