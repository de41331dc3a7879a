package session

import (
	"strings"
	"time"

	"github.com/NordCoder/Sugu/internal/auth"
)

type Config struct {
	BaseURL     string
	LoginPath   string
	RefreshPath string
	LogoutPath  string
	VerifyPath  string
	UserAgent   string

	// RefreshTimeout bounds one shared refresh, independent of any caller.
	RefreshTimeout  time.Duration
	RefreshAttempts int
	ExpirySkew      time.Duration
	LoginCooldown   time.Duration
	// RotateRefreshToken stores a refresh token returned by the refresh endpoint.
	RotateRefreshToken bool

	LoginEntry     string
	ExpiredMessage string
	EventTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000/api"
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	if c.RefreshPath == "" {
		c.RefreshPath = "/token/refresh"
	}
	if c.LogoutPath == "" {
		c.LogoutPath = "/logout"
	}
	if c.VerifyPath == "" {
		c.VerifyPath = "/users/verify-otp"
	}
	if c.UserAgent == "" {
		c.UserAgent = "Sugu/1.0"
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 10 * time.Second
	}
	if c.RefreshAttempts <= 0 {
		c.RefreshAttempts = 1
	}
	if c.ExpirySkew <= 0 {
		c.ExpirySkew = auth.DefaultSkew
	}
	// a negative cooldown disables login throttling
	switch {
	case c.LoginCooldown == 0:
		c.LoginCooldown = 2 * time.Second
	case c.LoginCooldown < 0:
		c.LoginCooldown = 0
	}
	if c.LoginEntry == "" {
		c.LoginEntry = "/login"
	}
	if c.ExpiredMessage == "" {
		c.ExpiredMessage = "Session expired, please sign in again."
	}
	if c.EventTimeout <= 0 {
		c.EventTimeout = 5 * time.Second
	}
	return c
}

func (c Config) url(path string) string { return c.BaseURL + path }
