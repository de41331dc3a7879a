package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Sugu/internal/config/client"
	"github.com/NordCoder/Sugu/internal/domain/event"
	kafkax "github.com/NordCoder/Sugu/internal/repository/kafka"
)

// initEvents returns a publisher even when the topic cannot be confirmed.
func initEvents(ctx context.Context, cfg *config.Config, l *zap.Logger) (event.Publisher, func()) {
	if !cfg.Kafka.Enable {
		return event.Nop{}, func() {}
	}
	ectx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := kafkax.EnsureTopic(ectx, cfg.Kafka.Brokers, kafkax.SessionEventsTopic(cfg.Kafka.Topic), l); err != nil {
		l.Warn("session events topic not confirmed", zap.Error(err))
	}

	p := kafkax.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic).WithLogger(l)
	l.Info("session events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	return kafkax.NewSessionEventsKafka(p), func() { _ = p.Close() }
}
