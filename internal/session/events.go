package session

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/domain/event"
	"github.com/NordCoder/Sugu/internal/obs"
	"github.com/NordCoder/Sugu/internal/obs/retry"
)

// publish hands the event to the publisher in the background; callers never wait on it.
func (c *Client) publish(ctx context.Context, kind event.Kind, userID int64, reason string) {
	ev := event.Event{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  userID,
		Reason:  reason,
		TraceID: obs.TraceID(ctx),
		At:      c.now().UTC(),
	}

	c.evMu.Lock()
	if c.evClosed {
		c.evMu.Unlock()
		c.log.Debug("client closed, event dropped", zap.String("kind", string(kind)))
		return
	}
	c.evWG.Add(1)
	c.evMu.Unlock()

	go func() {
		defer c.evWG.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.EventTimeout)
		defer cancel()
		err := retry.Do(pctx, func() error { return c.events.Publish(pctx, ev) }, retry.EventPolicy(c.log))
		if err != nil {
			c.log.Warn("session event not published",
				zap.String("event_id", ev.ID), zap.String("kind", string(kind)), zap.Error(err))
		}
	}()
}
