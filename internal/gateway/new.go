package gateway

import (
	"fmt"
	"time"

	"propoflash/internal/common/config"
	commonhttp "propoflash/internal/common/http"
	"propoflash/internal/common/logger"
	"propoflash/internal/common/observability"
)

// New builds the gateway for the configured provider. A missing API key is
// not an error here: Complete reports it on every call instead.
func New(cfg config.CompletionConfig, log logger.Logger, obs *observability.Observability) (*Client, error) {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	// The context deadline bounds each call; the client timeout is a backstop.
	httpClient := commonhttp.NewClient(timeout + 5*time.Second)

	var b backend
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		b = newOpenAIBackend(cfg.APIKey, cfg.BaseURL, httpClient)
	case config.ProviderGemini:
		b = newGeminiBackend(cfg.APIKey, cfg.BaseURL, httpClient)
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
	return newClient(b, cfg.Model, timeout, log, obs), nil
}
