package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	// Retention of zero keeps the broker default.
	Retention    time.Duration
	ReadyTimeout time.Duration
}

// SessionEventsTopic is the layout of the session lifecycle topic. Events are
// keyed by user id, so partitions only spread users, never reorder one user.
func SessionEventsTopic(name string) TopicSpec {
	return TopicSpec{
		Name:              name,
		Partitions:        3,
		ReplicationFactor: 1,
		Retention:         7 * 24 * time.Hour,
		ReadyTimeout:      30 * time.Second,
	}
}

// EnsureTopic creates the topic through the controller when missing and waits
// until every partition has a leader.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("ensure topic: no brokers")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if spec.Partitions <= 0 {
		spec.Partitions = 1
	}
	if spec.ReplicationFactor <= 0 {
		spec.ReplicationFactor = 1
	}
	if spec.ReadyTimeout <= 0 {
		spec.ReadyTimeout = 5 * time.Second
	}
	log = log.With(zap.String("component", "kafka.admin"), zap.String("topic", spec.Name))

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial %s: %w", brokers[0], err)
	}
	defer conn.Close()

	ctrl, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("find controller: %w", err)
	}
	cc, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer cc.Close()

	tc := kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.ReplicationFactor,
	}
	if spec.Retention > 0 {
		tc.ConfigEntries = []kafka.ConfigEntry{{
			ConfigName:  "retention.ms",
			ConfigValue: strconv.FormatInt(spec.Retention.Milliseconds(), 10),
		}}
	}
	if err := cc.CreateTopics(tc); err != nil {
		if !errors.Is(err, kafka.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", spec.Name, err)
		}
		log.Debug("topic already exists")
	}

	if err := waitLeaders(ctx, conn, spec); err != nil {
		return err
	}
	log.Info("topic ready", zap.Int("partitions", spec.Partitions), zap.Int("replication_factor", spec.ReplicationFactor))
	return nil
}

func waitLeaders(ctx context.Context, conn *kafka.Conn, spec TopicSpec) error {
	backoff := 200 * time.Millisecond
	const maxBackoff = 2 * time.Second
	deadline := time.NewTimer(spec.ReadyTimeout)
	defer deadline.Stop()

	for {
		parts, err := conn.ReadPartitions(spec.Name)
		if err == nil && len(parts) > 0 && allHaveLeader(parts) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("topic %s not ready after %s", spec.Name, spec.ReadyTimeout)
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

func allHaveLeader(parts []kafka.Partition) bool {
	for _, p := range parts {
		if p.Leader.ID == -1 {
			return false
		}
	}
	return true
}

// BootstrapConsumer makes sure the session events topic exists before the group
// joins it. A failure is logged: the reader retries until the topic appears.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, log *zap.Logger) *Consumer {
	if err := EnsureTopic(ctx, cfg.Brokers, SessionEventsTopic(cfg.Topic), log); err != nil && log != nil {
		log.Warn("ensure topic", zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewConsumer(cfg)
}
