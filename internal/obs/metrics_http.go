package obs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BootstrapMetricsServer serves /metrics and /healthz in the background.
// A nil health func always reports healthy.
func BootstrapMetricsServer(addr string, health func(context.Context) error, l *zap.Logger) *http.Server {
	ms := createMetricsServer(addr, health)

	go func() {
		l.Info("metrics listening", zap.String("addr", addr))
		if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("metrics server error", zap.Error(err))
		}
	}()

	return ms
}

func createMetricsServer(addr string, health func(context.Context) error) *http.Server {
	if health == nil {
		health = func(context.Context) error { return nil }
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := health(ctx); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}
