// internal/workers/proposal/chat/config.go
package chat

import (
	"time"

	"propoflash/internal/common/config"
)

type Config struct {
	Model        string
	Temperature  float64
	HistoryLimit int
	MaxBodyBytes int64
	// Timeout bounds a whole job in worker mode.
	Timeout time.Duration
}

func NewConfig(cfg *config.Config) *Config {
	return &Config{
		Model:        cfg.Completion.Model,
		Temperature:  cfg.Completion.Temperature,
		HistoryLimit: cfg.Pipeline.HistoryLimit,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Timeout:      time.Duration(cfg.Completion.Timeout)*time.Millisecond + 5*time.Second,
	}
}
