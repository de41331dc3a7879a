package audit

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/domain/event"
	kafkax "github.com/NordCoder/Sugu/internal/repository/kafka"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(func(ctx context.Context, _ []byte, ev *event.Event) error {
		return c.UC.Handle(ctx, *ev)
	})
	if err := c.Sub.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		c.Log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
