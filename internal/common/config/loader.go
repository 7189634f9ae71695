// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"propoflash/internal/proposal"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	MergeArraysReplace = "replace"
	MergeArraysConcat  = "concat"
)

// Load reads configs/config.yaml, merges configs/config.<env>.yaml on top and
// applies environment overrides.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return build(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Keys must be known to viper for AutomaticEnv to reach Unmarshal.
	v.SetDefault("app.name", "propoflash")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("completion.provider", ProviderOpenAI)
	v.SetDefault("completion.api_key", "")
	v.SetDefault("completion.base_url", "")
	v.SetDefault("completion.model", "")
	v.SetDefault("completion.temperature", 0.3)
	v.SetDefault("completion.style_temperature", 0.2)
	v.SetDefault("completion.prompts_path", "")
	v.SetDefault("pipeline.merge_arrays", MergeArraysReplace)
	v.SetDefault("quota.enabled", false)
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.elasticsearch.url", "")
	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("observability.jaeger_endpoint", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills values from the conventional provider variables.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Completion.APIKey == "" {
		switch cfg.Completion.Provider {
		case ProviderGemini:
			cfg.Completion.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")
		default:
			cfg.Completion.APIKey = firstEnv("OPENAI_API_KEY")
		}
	}
	if val := firstEnv("OPENAI_MODEL", "COMPLETION_MODEL"); val != "" && cfg.Completion.Provider == ProviderOpenAI {
		cfg.Completion.Model = val
	}
	if val := os.Getenv("GEMINI_MODEL"); val != "" && cfg.Completion.Provider == ProviderGemini {
		cfg.Completion.Model = val
	}

	if cfg.Database.Postgres.User == "" {
		cfg.Database.Postgres.User = os.Getenv("DB_USER")
	}
	if cfg.Database.Postgres.Password == "" {
		cfg.Database.Postgres.Password = os.Getenv("DB_PASSWORD")
	}
	if cfg.Database.Elasticsearch.URL == "" {
		cfg.Database.Elasticsearch.URL = os.Getenv("ELASTICSEARCH_URL")
	}
	if cfg.Observability.JaegerEndpoint == "" {
		cfg.Observability.JaegerEndpoint = os.Getenv("JAEGER_ENDPOINT")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "propoflash"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = ProviderOpenAI
	}
	if cfg.Completion.Model == "" {
		switch cfg.Completion.Provider {
		case ProviderGemini:
			cfg.Completion.Model = "gemini-2.5-flash"
		default:
			cfg.Completion.Model = "gpt-4o-mini"
		}
	}
	if cfg.Completion.Timeout == 0 {
		cfg.Completion.Timeout = 60000
	}

	if cfg.Pipeline.MergeArrays == "" {
		cfg.Pipeline.MergeArrays = MergeArraysReplace
	}
	if cfg.Pipeline.HistoryLimit == 0 {
		cfg.Pipeline.HistoryLimit = 20
	}
	if cfg.Pipeline.DefaultListCap == 0 {
		cfg.Pipeline.DefaultListCap = proposal.DefaultListCap
	}
	if cfg.Pipeline.MaxActions == 0 {
		cfg.Pipeline.MaxActions = 10
	}
	if cfg.Pipeline.MinContrast == 0 {
		cfg.Pipeline.MinContrast = 4.5
	}
	if len(cfg.Pipeline.ListCaps) == 0 {
		cfg.Pipeline.ListCaps = DefaultListCaps()
	}

	if cfg.Quota.DefaultAllowance == 0 {
		cfg.Quota.DefaultAllowance = 50
	}
	if cfg.Quota.PlanCacheTTL == 0 {
		cfg.Quota.PlanCacheTTL = 300000
	}
	if cfg.Quota.CheckTimeout == 0 {
		cfg.Quota.CheckTimeout = 2000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 90000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.IncidentIndex == "" {
		cfg.Database.Elasticsearch.IncidentIndex = "propoflash-incidents"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 90000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// DefaultListCaps returns the per-list bounds applied when none are configured,
// ordered by path.
func DefaultListCaps() []ListCap {
	caps := proposal.DefaultListCaps()
	out := make([]ListCap, 0, len(caps))
	for path, max := range caps {
		out = append(out, ListCap{Path: path, Max: max})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// validateConfig validates critical configuration fields. A missing provider key
// is not an error: requests then degrade to the fallback payload.
func validateConfig(cfg *Config) error {
	switch cfg.Completion.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("completion.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, cfg.Completion.Provider)
	}
	if cfg.Completion.Temperature < 0 || cfg.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be within [0, 2]")
	}
	if cfg.Completion.Timeout < 0 {
		return fmt.Errorf("completion.timeout must be positive")
	}

	switch cfg.Pipeline.MergeArrays {
	case MergeArraysReplace, MergeArraysConcat:
	default:
		return fmt.Errorf("pipeline.merge_arrays must be %q or %q", MergeArraysReplace, MergeArraysConcat)
	}
	for _, c := range cfg.Pipeline.ListCaps {
		if c.Path == "" || c.Max < 0 {
			return fmt.Errorf("pipeline.list_caps entries need a path and a non-negative max")
		}
	}

	if cfg.Quota.Enabled && !cfg.Database.Redis.Configured() {
		return fmt.Errorf("quota.enabled requires database.redis.address")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}

// ValidateForWorkers checks the settings only the job-worker mode needs.
func ValidateForWorkers(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       90000,
		MaxRetries:    3,
	}
}
