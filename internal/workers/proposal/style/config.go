// internal/workers/proposal/style/config.go
package style

import (
	"time"

	"propoflash/internal/common/config"
)

type Config struct {
	Model        string
	Temperature  float64
	MaxBodyBytes int64
	Timeout      time.Duration
}

func NewConfig(cfg *config.Config) *Config {
	return &Config{
		Model:        cfg.Completion.Model,
		Temperature:  cfg.Completion.StyleTemperature,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Timeout:      time.Duration(cfg.Completion.Timeout)*time.Millisecond + 5*time.Second,
	}
}
