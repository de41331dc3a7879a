package kafka

import (
	"context"

	"github.com/NordCoder/Sugu/internal/domain/event"
)

// SessionEventsKafka publishes session lifecycle events keyed by user id, so
// the events of one user stay ordered within a partition.
type SessionEventsKafka struct {
	p *Producer
}

func NewSessionEventsKafka(p *Producer) *SessionEventsKafka { return &SessionEventsKafka{p: p} }

var _ event.Publisher = (*SessionEventsKafka)(nil)

func (e *SessionEventsKafka) Publish(ctx context.Context, ev event.Event) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(ev.UserID), ev)
}
