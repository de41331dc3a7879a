package messages

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

var (
	mTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "messages_poll_ticks_total", Help: "Message poll ticks by result",
	}, []string{"result"})
	mDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_delivered_total", Help: "New messages handed to the sink",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "messages_poll_duration_seconds", Help: "Message poll tick duration",
		Buckets: prometheus.DefBuckets,
	})
)

// Runner polls for new messages while its ctx is alive.
type Runner struct {
	Log      *zap.Logger
	UC       *Usecase
	Interval time.Duration
}

func New(log *zap.Logger, uc *Usecase, interval time.Duration) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Runner{Log: log.With(zap.String("component", "messages")), UC: uc, Interval: interval}
}

func (r *Runner) tick(ctx context.Context) error {
	start := time.Now()
	defer func() { mTickDur.Observe(time.Since(start).Seconds()) }()

	fetched, delivered, err := r.UC.Tick(ctx)
	if delivered > 0 {
		mDelivered.Add(float64(delivered))
		r.Log.Debug("new messages", zap.Int("fetched", fetched), zap.Int("delivered", delivered))
	}
	switch {
	case err == nil:
		mTicks.WithLabelValues("ok").Inc()
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case sessionGone(err):
		mTicks.WithLabelValues("session_ended").Inc()
		return err
	}
	mTicks.WithLabelValues("error").Inc()
	r.Log.Warn("poll tick failed", zap.Error(err))
	return nil
}

// sessionGone reports errors after which polling cannot succeed without a new login.
func sessionGone(err error) bool {
	return errors.Is(err, domainsession.ErrSessionExpired) || errors.Is(err, domainsession.ErrUnauthenticated)
}

// Run returns ctx.Err() when cancelled, or the error that ended the session.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	if err := r.tick(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				return err
			}
		}
	}
}
