package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Backoff interface {
	Next(attempt int) time.Duration
}

type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(b.Base) * math.Pow(2, float64(attempt))
	if b.Max > 0 && time.Duration(d) > b.Max {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*b.Jitter
	}
	return time.Duration(d)
}

// Policy describes one retried session operation. A nil Retryable retries
// every error; a nil Backoff retries immediately.
type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
}

// Reasons a retried operation gave up.
const (
	StopAttempts  = "attempts"
	StopPermanent = "permanent"
	StopCanceled  = "canceled"
)

var (
	mAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_retry_attempts_total",
		Help: "Attempts made by retried session operations.",
	}, []string{"op"})
	mGiveUps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_retry_giveups_total",
		Help: "Retried session operations that failed for good, by reason.",
	}, []string{"op", "reason"})
	mDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "session_retry_duration_seconds",
		Help:    "Time spent in a retried session operation, backoff included.",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"op"})
)

// Do runs fn until it succeeds or gives up. The last error from fn is returned
// as is, so callers keep classifying it; a ctx done before the first attempt
// returns ctx.Err().
func Do(ctx context.Context, fn func() error, p Policy) error {
	op := p.Name
	if op == "" {
		op = "unnamed"
	}
	start := time.Now()
	defer func() { mDuration.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	if err := ctx.Err(); err != nil {
		mGiveUps.WithLabelValues(op, StopCanceled).Inc()
		return err
	}

	attempts := max(p.Attempts, 1)
	span := trace.SpanFromContext(ctx)

	var err error
	for i := range attempts {
		mAttempts.WithLabelValues(op).Inc()
		if err = fn(); err == nil {
			return nil
		}
		if p.OnAttempt != nil {
			p.OnAttempt(i, err)
		}
		span.AddEvent("retry.attempt", trace.WithAttributes(
			attribute.String("retry.op", op),
			attribute.Int("retry.attempt", i+1),
			attribute.String("retry.error", err.Error()),
		))

		reason := ""
		switch {
		case p.Retryable != nil && !p.Retryable(err):
			reason = StopPermanent
		case i == attempts-1:
			reason = StopAttempts
		}
		if reason == "" && !wait(ctx, p.Backoff, i) {
			reason = StopCanceled
		}
		if reason != "" {
			mGiveUps.WithLabelValues(op, reason).Inc()
			if p.OnExhaust != nil {
				p.OnExhaust(err)
			}
			return err
		}
	}
	return err
}

// wait sleeps for the backoff of attempt i and reports false when ctx ends first.
func wait(ctx context.Context, b Backoff, i int) bool {
	if b == nil {
		return ctx.Err() == nil
	}
	t := time.NewTimer(b.Next(i))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
