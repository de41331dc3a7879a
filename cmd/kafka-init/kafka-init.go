package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/obs"
	kafkax "github.com/NordCoder/Sugu/internal/repository/kafka"
)

// kafka-init creates the session events topic before producers and the audit consumer start.
func main() {
	brokers := strings.Split(env("KAFKA_BROKERS", "kafka:9092"), ",")
	topics := strings.Split(env("KAFKA_TOPICS", "session.events"), ",")

	l, err := obs.NewLogger(obs.LogConfig{Level: env("LOG_LEVEL", "info"), App: "sugu/kafka-init"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		spec := kafkax.SessionEventsTopic(t)
		spec.Partitions = envInt("KAFKA_PARTITIONS", spec.Partitions)
		spec.ReplicationFactor = envInt("KAFKA_RF", spec.ReplicationFactor)
		if d, err := time.ParseDuration(env("KAFKA_RETENTION", "")); err == nil {
			spec.Retention = d
		}
		if err := kafkax.EnsureTopic(ctx, brokers, spec, l); err != nil {
			l.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	l.Info("kafka-init ok", zap.Strings("topics", topics))
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
