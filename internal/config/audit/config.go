package audit_config

import (
	"github.com/NordCoder/Sugu/internal/obs"
	kafkax "github.com/NordCoder/Sugu/internal/repository/kafka"
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

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App    App     `mapstructure:"app"`
	Log    Log     `mapstructure:"log"`
	OTEL   OTEL    `mapstructure:"otel"`
	In     KafkaIn `mapstructure:"kafka_in"`
	Server Server  `mapstructure:"server"`
}

func (c *Config) AsLoggerConfig() *obs.LogConfig {
	return &obs.LogConfig{Level: c.Log.Level, Pretty: c.Log.Pretty, App: c.App.Name, Env: c.App.Env, Ver: c.App.Version}
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      c.OTEL.Enable,
		Endpoint:    c.OTEL.OTLPEndpoint,
		ServiceName: c.OTEL.ServiceName,
		SampleRatio: c.OTEL.SampleRatio,
	}
}

func (c *Config) AsConsumerConfig() *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers:       c.In.Brokers,
		GroupID:       c.In.GroupID,
		Topic:         c.In.Topic,
		FromBeginning: c.In.FromBeginning,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
