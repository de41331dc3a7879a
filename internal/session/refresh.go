package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/domain/event"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
	"github.com/NordCoder/Sugu/internal/obs"
	"github.com/NordCoder/Sugu/internal/obs/retry"
)

const refreshFlight = "refresh"

// rejectedError means the server refused the refresh token itself.
type rejectedError struct {
	status int
}

func (e *rejectedError) Error() string {
	return fmt.Sprintf("refresh token rejected with status %d", e.status)
}

func transient(err error) bool {
	if errors.Is(err, domainsession.ErrTransport) {
		return true
	}
	var apiErr *domainsession.APIError
	return errors.As(err, &apiErr) && apiErr.Status >= http.StatusInternalServerError
}

// Refresh exchanges the stored refresh token for a new access token, joining
// a refresh already in flight.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx, c.read(ctx, domainsession.KeyAccessToken))
	return err
}

// refresh returns a usable access token. stale is the token the caller found
// unusable; a different valid token in the store is returned without a network call.
// A caller whose ctx ends stops waiting; the shared flight carries on for the others.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	ch := c.flights.DoChan(refreshFlight, func() (any, error) {
		return c.runRefresh(ctx, stale)
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", domainsession.ErrRefreshFailed, ctx.Err())
	case res := <-ch:
		if res.Shared {
			mRefreshShared.Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) runRefresh(parent context.Context, stale string) (string, error) {
	start := time.Now()
	defer func() { mRefreshDur.Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.cfg.RefreshTimeout)
	defer cancel()

	tr := otel.Tracer("session.refresh")
	ctx, span := tr.Start(ctx, "session.refresh")
	defer span.End()
	log := obs.WithTrace(ctx, c.log)

	gen := c.generation()

	if current := c.read(ctx, domainsession.KeyAccessToken); current != "" && current != stale && !c.expired(current) {
		mRefresh.WithLabelValues("reused").Inc()
		span.SetAttributes(attribute.String("refresh.outcome", "reused"))
		return current, nil
	}

	refreshToken := c.read(ctx, domainsession.KeyRefreshToken)
	if refreshToken == "" {
		mRefresh.WithLabelValues("no_refresh_token").Inc()
		span.SetAttributes(attribute.String("refresh.outcome", "no_refresh_token"))
		return "", fmt.Errorf("%w: no refresh token", domainsession.ErrRefreshFailed)
	}

	var res tokenResponse
	err := retry.Do(ctx, func() error {
		var err error
		res, err = c.requestRefresh(ctx, refreshToken)
		return err
	}, retry.RefreshPolicy(c.cfg.RefreshAttempts, transient, log))
	if err != nil {
		span.RecordError(err)
		userID := c.userID(ctx)
		var rej *rejectedError
		if errors.As(err, &rej) {
			mRefresh.WithLabelValues("rejected").Inc()
			span.SetAttributes(attribute.String("refresh.outcome", "rejected"))
			log.Info("refresh token rejected", zap.Int("status", rej.status))
			c.publish(ctx, event.KindRefreshFailed, userID, "rejected")
			c.forceLogout(ctx, reasonRefreshRejected, gen)
		} else {
			mRefresh.WithLabelValues("failed").Inc()
			span.SetAttributes(attribute.String("refresh.outcome", "failed"))
			log.Warn("refresh failed", zap.Error(err))
			c.publish(ctx, event.KindRefreshFailed, userID, "unavailable")
		}
		return "", fmt.Errorf("%w: %w", domainsession.ErrRefreshFailed, err)
	}

	pair := res.pair()

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		mRefresh.WithLabelValues("discarded").Inc()
		span.SetAttributes(attribute.String("refresh.outcome", "discarded"))
		return "", fmt.Errorf("%w: session ended while refreshing", domainsession.ErrRefreshFailed)
	}
	if err := c.store.Set(ctx, domainsession.KeyAccessToken, pair.Access); err != nil {
		// the fresh token still serves the waiting requests
		mStoreErrors.WithLabelValues("set").Inc()
		log.Error("store refreshed access token", zap.Error(err))
	}
	if c.cfg.RotateRefreshToken && pair.Refresh != "" && pair.Refresh != refreshToken {
		if err := c.store.Set(ctx, domainsession.KeyRefreshToken, pair.Refresh); err != nil {
			mStoreErrors.WithLabelValues("set").Inc()
			log.Error("store rotated refresh token", zap.Error(err))
		}
	}
	c.mu.Unlock()

	mRefresh.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.String("refresh.outcome", "ok"))
	log.Debug("access token refreshed")
	c.publish(ctx, event.KindRefreshed, c.userID(ctx), "")
	return pair.Access, nil
}

func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (tokenResponse, error) {
	var out tokenResponse
	status, body, err := c.doJSON(ctx, http.MethodPost, c.cfg.RefreshPath, "", refreshRequest{RefreshToken: refreshToken}, &out)
	if err != nil {
		return out, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return out, &rejectedError{status: status}
	case status/100 != 2:
		return out, apiError(http.MethodPost, c.cfg.RefreshPath, status, body)
	}
	if out.pair().Access == "" {
		return out, errors.New("refresh response has no access token")
	}
	return out, nil
}
