package messages

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NordCoder/Sugu/internal/services/marketplace"
)

type Source interface {
	Discussions(ctx context.Context) ([]marketplace.Discussion, error)
}

// Sink receives messages the user has not seen yet.
type Sink interface {
	Deliver(ctx context.Context, m Incoming) error
}

type Incoming struct {
	DiscussionID int64
	Listing      marketplace.Listing
	Message      marketplace.Message
}

// Usecase remembers which messages were delivered. The first tick only
// records what is already there, so a newly opened view is not flooded.
type Usecase struct {
	Src  Source
	Out  Sink
	Self int64

	mu     sync.Mutex
	primed bool
	seen   map[int64]struct{}
}

func NewUC(src Source, out Sink, self int64) *Usecase {
	return &Usecase{Src: src, Out: out, Self: self, seen: make(map[int64]struct{})}
}

// Tick returns how many messages were fetched and how many were delivered.
func (u *Usecase) Tick(ctx context.Context) (int, int, error) {
	tr := otel.Tracer("messages.uc")
	ctx, span := tr.Start(ctx, "messages.tick")
	defer span.End()

	ds, err := u.Src.Discussions(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, 0, fmt.Errorf("fetch discussions: %w", err)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	fetched, delivered := 0, 0
	var firstErr error
	for _, d := range ds {
		for _, m := range d.Messages {
			fetched++
			if _, ok := u.seen[m.ID]; ok {
				continue
			}
			if !u.primed || m.Sender.ID == u.Self {
				u.seen[m.ID] = struct{}{}
				continue
			}
			if err := u.Out.Deliver(ctx, Incoming{DiscussionID: d.ID, Listing: d.Listing, Message: m}); err != nil {
				// not marked seen; the next tick tries again
				if firstErr == nil {
					firstErr = fmt.Errorf("deliver message %d: %w", m.ID, err)
				}
				continue
			}
			u.seen[m.ID] = struct{}{}
			delivered++
		}
	}
	u.primed = true

	span.SetAttributes(
		attribute.Int("messages.fetched", fetched),
		attribute.Int("messages.delivered", delivered),
	)
	if firstErr != nil {
		span.RecordError(firstErr)
	}
	return fetched, delivered, firstErr
}
