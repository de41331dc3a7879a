package audit_config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetDefault("app.name", "session-audit")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "session-audit")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("kafka_in.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka_in.topic", "session.events")
	v.SetDefault("kafka_in.group_id", "session-audit")
	v.SetDefault("kafka_in.from_beginning", false)

	v.SetDefault("server.metrics_addr", ":9102")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.In.Brokers) == 0 || cfg.In.Topic == "" || cfg.In.GroupID == "" {
		return nil, ErrConfig("kafka_in.brokers, kafka_in.topic and kafka_in.group_id are required")
	}
	return &cfg, nil
}
