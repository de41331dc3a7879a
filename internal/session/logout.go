package session

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/NordCoder/Sugu/internal/domain/event"
	domainsession "github.com/NordCoder/Sugu/internal/domain/session"
)

const (
	reasonPreflight       = "preflight_refresh_failed"
	reasonUnauthorized    = "unauthorized_after_refresh_failed"
	reasonRefreshRejected = "refresh_token_rejected"
)

// forceLogout ends the session that was current at gen. It runs at most once
// per session: later or concurrent triggers find the client disarmed.
func (c *Client) forceLogout(ctx context.Context, reason string, gen uint64) {
	c.mu.Lock()
	if !c.armed || c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.armed = false
	c.gen++
	userID := c.userID(ctx)
	err := c.store.Clear(context.WithoutCancel(ctx), domainsession.Keys...)
	c.mu.Unlock()

	log := c.log.With(zap.String("reason", reason))
	if err != nil {
		mStoreErrors.WithLabelValues("clear").Inc()
		log.Error("clear session on forced logout", zap.Error(err))
	}
	mForcedLogout.WithLabelValues(reason).Inc()
	log.Info("session ended, login required")

	c.notifier.Notify(ctx, c.cfg.ExpiredMessage)
	c.navigator.Navigate(ctx, c.cfg.LoginEntry)
	c.publish(ctx, event.KindForcedLogout, userID, reason)
}

// Logout revokes the refresh token on the server when possible and always
// clears the local session.
func (c *Client) Logout(ctx context.Context) error {
	access := c.read(ctx, domainsession.KeyAccessToken)
	refresh := c.read(ctx, domainsession.KeyRefreshToken)
	userID := c.userID(ctx)

	if refresh != "" {
		status, _, err := c.doJSON(ctx, http.MethodPost, c.cfg.LogoutPath, access, logoutRequest{RefreshToken: refresh}, nil)
		switch {
		case err != nil:
			c.log.Warn("server logout failed", zap.Error(err))
		case status/100 != 2:
			c.log.Debug("server logout refused", zap.Int("status", status))
		}
	}

	c.mu.Lock()
	c.armed = false
	c.gen++
	err := c.store.Clear(context.WithoutCancel(ctx), domainsession.Keys...)
	c.mu.Unlock()
	if err != nil {
		mStoreErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("logout: %w", err)
	}

	c.navigator.Navigate(ctx, c.cfg.LoginEntry)
	c.publish(ctx, event.KindLogout, userID, "")
	return nil
}
