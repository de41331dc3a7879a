package main

import (
	"context"
	"flag"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/obs"
	"github.com/NordCoder/Sugu/migrations"
)

// migrator creates the session_entries table used by the postgres token store.
func main() {
	cmd := flag.String("cmd", "up", "goose command: up, down, status")
	flag.Parse()

	l, err := obs.NewLogger(obs.LogConfig{Level: "info", App: "sugu/migrator"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		l.Fatal("DB_DSN is empty")
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(zap.NewStdLog(l))
	if err := goose.SetDialect("postgres"); err != nil {
		l.Fatal("set dialect", zap.Error(err))
	}
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		l.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()
	switch *cmd {
	case "up":
		err = goose.UpContext(ctx, db, ".")
	case "down":
		err = goose.DownContext(ctx, db, ".")
	case "status":
		err = goose.StatusContext(ctx, db, ".")
	default:
		l.Fatal("unknown command", zap.String("cmd", *cmd))
	}
	if err != nil {
		l.Fatal("migrate", zap.String("cmd", *cmd), zap.Error(err))
	}
	l.Info("migrations done", zap.String("cmd", *cmd))
}
