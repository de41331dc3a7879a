package client_config

import (
	"time"

	"github.com/NordCoder/Sugu/internal/obs"
	pg "github.com/NordCoder/Sugu/internal/repository/postgres"
	rds "github.com/NordCoder/Sugu/internal/repository/redis"
	"github.com/NordCoder/Sugu/internal/session"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type API struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
}

type Auth struct {
	LoginPath          string        `mapstructure:"login_path"`
	RefreshPath        string        `mapstructure:"refresh_path"`
	LogoutPath         string        `mapstructure:"logout_path"`
	VerifyPath         string        `mapstructure:"verify_path"`
	RefreshTimeout     time.Duration `mapstructure:"refresh_timeout"`
	RefreshAttempts    int           `mapstructure:"refresh_attempts"`
	ExpirySkew         time.Duration `mapstructure:"expiry_skew"`
	LoginCooldown      time.Duration `mapstructure:"login_cooldown"`
	RotateRefreshToken bool          `mapstructure:"rotate_refresh_token"`
	LoginEntry         string        `mapstructure:"login_entry"`
	ExpiredMessage     string        `mapstructure:"expired_message"`
}

const (
	DurableNone     = "none"
	DurablePostgres = "postgres"
	DurableRedis    = "redis"
	DurableSQLite   = "sqlite"
)

type SQLite struct {
	Path string `mapstructure:"path"`
}

// Store selects where a remembered session lives; the ephemeral one is always in memory.
type Store struct {
	Durable  string     `mapstructure:"durable"`
	Profile  string     `mapstructure:"profile"`
	Postgres pg.Config  `mapstructure:"postgres"`
	Redis    rds.Config `mapstructure:"redis"`
	SQLite   SQLite     `mapstructure:"sqlite"`
}

type Kafka struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Messages struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App      App      `mapstructure:"app"`
	Log      Log      `mapstructure:"log"`
	OTEL     OTEL     `mapstructure:"otel"`
	API      API      `mapstructure:"api"`
	Auth     Auth     `mapstructure:"auth"`
	Store    Store    `mapstructure:"store"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Messages Messages `mapstructure:"messages"`
	Server   Server   `mapstructure:"server"`
}

func (c *Config) AsLoggerConfig() *obs.LogConfig {
	return &obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) AsSessionConfig() session.Config {
	return session.Config{
		BaseURL:            c.API.BaseURL,
		LoginPath:          c.Auth.LoginPath,
		RefreshPath:        c.Auth.RefreshPath,
		LogoutPath:         c.Auth.LogoutPath,
		VerifyPath:         c.Auth.VerifyPath,
		UserAgent:          c.API.UserAgent,
		RefreshTimeout:     c.Auth.RefreshTimeout,
		RefreshAttempts:    c.Auth.RefreshAttempts,
		ExpirySkew:         c.Auth.ExpirySkew,
		LoginCooldown:      c.Auth.LoginCooldown,
		RotateRefreshToken: c.Auth.RotateRefreshToken,
		LoginEntry:         c.Auth.LoginEntry,
		ExpiredMessage:     c.Auth.ExpiredMessage,
	}
}

func (c *Config) AsTransportConfig() session.TransportConfig {
	return session.TransportConfig{
		Timeout:   c.API.Timeout,
		VerifyTLS: c.API.VerifyTLS,
		Tracing:   c.OTEL.Enable,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
