package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Sugu/internal/domain/event"
)

func TestJSONHandler_DecodesEvent(t *testing.T) {
	var got *event.Event
	var gotKey string
	h := JSONHandler(func(_ context.Context, key []byte, ev *event.Event) error {
		got, gotKey = ev, string(key)
		return nil
	})

	err := h(context.Background(), KeyFromInt64(42),
		[]byte(`{"id":"e1","kind":"forced_logout","user_id":42,"reason":"refresh_token_rejected","at":"2025-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "42", gotKey)
	assert.Equal(t, event.KindForcedLogout, got.Kind)
	assert.EqualValues(t, 42, got.UserID)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), got.At)
}

func TestJSONHandler_BadPayload(t *testing.T) {
	called := false
	h := JSONHandler(func(context.Context, []byte, *event.Event) error {
		called = true
		return nil
	})

	err := h(context.Background(), nil, []byte("{not json"))
	assert.ErrorIs(t, err, ErrBadMessage)
	assert.False(t, called)
}

func TestHeaderCarrier(t *testing.T) {
	var hs []kafka.Header
	c := headerCarrier{hs: &hs}
	c.Set("traceparent", "00-abc-def-01")
	c.Set("traceparent", "00-abc-fed-01")

	require.Len(t, hs, 1)
	assert.Equal(t, "00-abc-fed-01", c.Get("traceparent"))
	assert.Empty(t, c.Get("missing"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}

func TestSessionEventsTopic(t *testing.T) {
	spec := SessionEventsTopic("session.events")
	assert.Equal(t, "session.events", spec.Name)
	assert.Equal(t, 3, spec.Partitions)
	assert.Equal(t, 7*24*time.Hour, spec.Retention)
}

func TestEnsureTopic_NoBrokers(t *testing.T) {
	err := EnsureTopic(context.Background(), nil, SessionEventsTopic("x"), nil)
	require.Error(t, err)
}
