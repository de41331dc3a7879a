package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/services/messages"
)

// terminal is the user-facing side of the session: notices go to stderr and
// "navigating to login" ends the running command.
type terminal struct {
	out io.Writer
	err io.Writer
	log *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (t *terminal) Notify(_ context.Context, msg string) {
	fmt.Fprintln(t.err, msg)
}

func (t *terminal) Navigate(_ context.Context, target string) {
	t.log.Info("login required", zap.String("entry", target))
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *terminal) bind(cancel context.CancelFunc) {
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
}

func (t *terminal) Deliver(_ context.Context, m messages.Incoming) error {
	_, err := fmt.Fprintf(t.out, "[%s] %s: %s\n", m.Listing.Title, senderName(m), m.Message.Content)
	return err
}

func senderName(m messages.Incoming) string {
	if m.Message.Sender.Name != "" {
		return m.Message.Sender.Name
	}
	return fmt.Sprintf("user %d", m.Message.Sender.ID)
}
