package kafka

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONHandler decodes each message into a fresh M before calling handle.
// A message that is not valid JSON is reported and skipped by the consumer.
func JSONHandler[M any](handle func(context.Context, []byte, *M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var msg M
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("%w: %w", ErrBadMessage, err)
		}
		return handle(ctx, key, &msg)
	}
}
