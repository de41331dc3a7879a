package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// EventPolicy is used for publishing session events; delivery is best effort.
func EventPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:     "session_event_publish",
		Attempts: 4,
		Backoff:  ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Warn("event publish retry", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
		OnExhaust: func(err error) {
			if log != nil && !errors.Is(err, context.Canceled) {
				log.Error("event publish retries exhausted", zap.Error(err))
			}
		},
	}
}

// RefreshPolicy retries only errors accepted by transient, inside the refresh timeout.
func RefreshPolicy(attempts int, transient func(error) bool, log *zap.Logger) Policy {
	return Policy{
		Name:      "token_refresh",
		Attempts:  attempts,
		Backoff:   ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second, Jitter: 0.2},
		Retryable: transient,
		OnAttempt: func(i int, err error) {
			if log != nil {
				log.Debug("refresh attempt failed", zap.Int("attempt", i+1), zap.Error(err))
			}
		},
	}
}
