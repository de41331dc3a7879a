package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sugu/internal/config/audit"
	"github.com/NordCoder/Sugu/internal/obs"
	"github.com/NordCoder/Sugu/internal/repository/kafka"
	"github.com/NordCoder/Sugu/internal/services/audit"
)

func main() {
	configPath := flag.String("config", os.Getenv("AUDIT_CONFIG"), "path to a yaml config file")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(*cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting session-audit",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(rootCtx, cfg.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// metrics
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, nil, l)

	// kafka
	cons := kafka.BootstrapConsumer(rootCtx, cfg.AsConsumerConfig(), l).WithLogger(l)
	defer func() { _ = cons.Close() }()

	ctrl := &audit.Controller{Log: l, Sub: cons, UC: audit.NewHandler(l)}
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr := <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	s := ctrl.UC.Snapshot()
	l.Info("session events seen", zap.Any("by_kind", s.Counts), zap.Any("forced_by_reason", s.ForcedReasons))

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
