package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Producer struct {
	w     *kafka.Writer
	topic string
	log   *zap.Logger
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
		},
		topic: topic,
		log:   zap.L().With(zap.String("component", "kafka.producer"), zap.String("topic", topic)),
	}
}

func (p *Producer) WithLogger(l *zap.Logger) *Producer {
	if l == nil {
		return p
	}
	cp := *p
	cp.log = l.With(zap.String("component", "kafka.producer"), zap.String("topic", p.topic))
	return &cp
}

// PublishJSON writes v as one JSON message and carries the trace context in headers.
func (p *Producer) PublishJSON(ctx context.Context, key []byte, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	tr := otel.Tracer("kafka.producer")
	ctx, span := tr.Start(ctx, "kafka.produce "+p.topic, trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingDestinationName(p.topic),
			semconv.MessagingOperationPublish,
		),
	)
	defer span.End()

	var hdrs []kafka.Header
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{hs: &hdrs})

	msg := kafka.Message{Key: key, Value: value, Headers: hdrs}

	err = p.w.WriteMessages(ctx, msg)
	if err != nil {
		span.RecordError(err)
		p.log.Warn("kafka write failed", zap.Error(err))
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	p.log.Debug("message published",
		zap.Int("key_len", len(key)),
		zap.Int("value_len", len(value)),
	)
	return nil
}

func (p *Producer) Close() error { return p.w.Close() }

func KeyFromInt64(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
