package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/Sugu/internal/config/client"
	"github.com/NordCoder/Sugu/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(*cfg.AsLoggerConfig())
}
