// internal/workers/infrastructure/usage-quota/config.go
package usagequota

import (
	"time"

	"propoflash/internal/common/config"
)

type Config struct {
	Timeout          time.Duration
	PlanCacheTTL     time.Duration
	DefaultAllowance int64
	UsageTTL         time.Duration
}

func NewConfig(cfg config.QuotaConfig) *Config {
	return &Config{
		Timeout:          time.Duration(cfg.CheckTimeout) * time.Millisecond,
		PlanCacheTTL:     time.Duration(cfg.PlanCacheTTL) * time.Millisecond,
		DefaultAllowance: cfg.DefaultAllowance,
		UsageTTL:         32 * 24 * time.Hour,
	}
}
