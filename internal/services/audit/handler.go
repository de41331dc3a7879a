package audit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/domain/event"
	"github.com/NordCoder/Sugu/internal/obs"
)

var (
	mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_audit_events_total", Help: "Session events consumed by kind",
	}, []string{"kind"})
	mLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_audit_event_lag_seconds",
		Help:    "Delay between an event and its consumption",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
	})
)

// Handler records session events. Invalid events are logged and dropped.
type Handler struct {
	Log   *zap.Logger
	Clock func() time.Time

	mu     sync.Mutex
	counts map[event.Kind]int
	forced map[string]int
}

func NewHandler(log *zap.Logger) *Handler {
	return &Handler{
		Log:    obs.Component(log, "session-audit"),
		Clock:  time.Now,
		counts: map[event.Kind]int{},
		forced: map[string]int{},
	}
}

func (h *Handler) Handle(ctx context.Context, ev event.Event) error {
	log := obs.WithTrace(ctx, h.Log)
	if !ev.Kind.Valid() {
		log.Warn("session event: unknown kind", zap.String("kind", string(ev.Kind)), zap.String("event_id", ev.ID))
		return nil
	}

	mEvents.WithLabelValues(string(ev.Kind)).Inc()
	if !ev.At.IsZero() {
		mLag.Observe(h.Clock().Sub(ev.At).Seconds())
	}

	h.mu.Lock()
	h.counts[ev.Kind]++
	if ev.Kind == event.KindForcedLogout {
		h.forced[ev.Reason]++
	}
	h.mu.Unlock()

	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("kind", string(ev.Kind)),
		zap.Int64("user_id", ev.UserID),
		zap.Time("at", ev.At),
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	if ev.TraceID != "" {
		fields = append(fields, zap.String("origin_trace_id", ev.TraceID))
	}
	switch ev.Kind {
	case event.KindForcedLogout, event.KindRefreshFailed:
		log.Warn("session event", fields...)
	default:
		log.Info("session event", fields...)
	}
	return nil
}

type Snapshot struct {
	Counts        map[event.Kind]int
	ForcedReasons map[string]int
}

func (h *Handler) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{Counts: make(map[event.Kind]int, len(h.counts)), ForcedReasons: make(map[string]int, len(h.forced))}
	for k, v := range h.counts {
		s.Counts[k] = v
	}
	for k, v := range h.forced {
		s.ForcedReasons[k] = v
	}
	return s
}
