package usagequota

import "propoflash/internal/common/config"

func configFixture() config.QuotaConfig {
	return config.QuotaConfig{
		Enabled:          true,
		DefaultAllowance: 50,
		PlanCacheTTL:     300000,
		CheckTimeout:     2000,
	}
}
