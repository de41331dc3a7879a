package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mRefresh = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_refresh_total",
		Help: "Token refresh flights by outcome.",
	}, []string{"outcome"})
	mRefreshShared = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_refresh_coalesced_total",
		Help: "Callers that joined an in-flight refresh instead of starting one.",
	})
	mRefreshDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "session_refresh_duration_seconds",
		Help:    "Duration of one refresh flight.",
		Buckets: prometheus.DefBuckets,
	})
	mRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_request_retries_total",
		Help: "Requests resent after a refresh triggered by 401.",
	})
	mForcedLogout = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_forced_logouts_total",
		Help: "Forced logouts by trigger.",
	}, []string{"reason"})
	mStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_store_errors_total",
		Help: "Token store failures by operation.",
	}, []string{"op"})
	mLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
)
