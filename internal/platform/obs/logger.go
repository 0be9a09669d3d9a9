package obs

import (
	"go.uber.org/zap"
)

// NewLogger builds a console logger for development and a JSON logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "development" || env == "dev" || env == "local" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
