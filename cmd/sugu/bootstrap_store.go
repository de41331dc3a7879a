package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sugu/internal/config/client"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/repository/memory"
	pg "github.com/NordCoder/Sugu/internal/repository/postgres"
	rds "github.com/NordCoder/Sugu/internal/repository/redis"
	"github.com/NordCoder/Sugu/internal/repository/sqlite"
	"github.com/NordCoder/Sugu/internal/session"
)

// initStore builds the session storage: memory for ordinary sessions and the
// configured durable backend for remembered ones.
func initStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (*session.Storage, func(), error) {
	durable, closer, err := initDurable(ctx, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return session.NewStorage(memory.NewStore(), durable), closer, nil
}

func initDurable(ctx context.Context, cfg *config.Config, l *zap.Logger) (domainsession.Store, func(), error) {
	sc := cfg.Store
	switch sc.Durable {
	case config.DurablePostgres:
		db, err := pg.New(ctx, sc.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		if sc.Postgres.AutoMigrate {
			if err := db.Migrate(ctx, l); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("postgres store: %w", err)
			}
		}
		l.Info("durable store: postgres", zap.String("profile", sc.Profile))
		return pg.NewTokenStore(db, pg.NewTransactor(db, l), sc.Profile), db.Close, nil
	case config.DurableRedis:
		rdb, err := rds.Open(ctx, sc.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		l.Info("durable store: redis", zap.String("profile", sc.Profile))
		return rds.NewTokenStore(rdb, sc.Redis, sc.Profile), func() { _ = rdb.Close() }, nil
	case config.DurableSQLite:
		db, err := sqlite.Open(ctx, sc.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		l.Info("durable store: sqlite", zap.String("path", sc.SQLite.Path), zap.String("profile", sc.Profile))
		return sqlite.NewTokenStore(db, sc.Profile), func() { _ = db.Close() }, nil
	}
	l.Info("durable store disabled; remember-me keeps the session in memory")
	return nil, func() {}, nil
}
