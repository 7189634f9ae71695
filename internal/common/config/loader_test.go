package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propoflash/internal/proposal"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearProviderEnv(t *testing.T) {
	for _, k := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENAI_MODEL", "COMPLETION_MODEL",
		"GEMINI_MODEL", "COMPLETION_API_KEY", "COMPLETION_PROVIDER", "COMPLETION_MODEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "app:\n  name: propoflash\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, ProviderOpenAI, cfg.Completion.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Completion.Model)
	assert.InDelta(t, 0.3, cfg.Completion.Temperature, 1e-9)
	assert.InDelta(t, 0.2, cfg.Completion.StyleTemperature, 1e-9)
	assert.Equal(t, 60000, cfg.Completion.Timeout)
	assert.Equal(t, MergeArraysReplace, cfg.Pipeline.MergeArrays)
	assert.Equal(t, 20, cfg.Pipeline.HistoryLimit)
	assert.Equal(t, 100, cfg.Pipeline.DefaultListCap)
	assert.Equal(t, DefaultListCaps(), cfg.Pipeline.ListCaps)
	assert.Empty(t, cfg.Completion.APIKey, "a missing key must not fail loading")
	assert.False(t, cfg.Quota.Enabled)
}

func TestDefaultListCaps_MatchPipeline(t *testing.T) {
	caps := DefaultListCaps()
	got := make(map[string]int, len(caps))
	for i, c := range caps {
		got[c.Path] = c.Max
		if i > 0 {
			assert.Less(t, caps[i-1].Path, c.Path)
		}
	}
	assert.Equal(t, proposal.DefaultListCaps(), got)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4.1-mini")
	t.Setenv("PF_TEST_REDIS", "localhost:6390")

	path := writeConfig(t, `
pipeline:
  merge_arrays: concat
  list_caps:
    - path: pricing.items
      max: 5
database:
  redis:
    address: ${PF_TEST_REDIS}
quota:
  enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Completion.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.Completion.Model)
	assert.Equal(t, MergeArraysConcat, cfg.Pipeline.MergeArrays)
	assert.Equal(t, []ListCap{{Path: "pricing.items", Max: 5}}, cfg.Pipeline.ListCaps)
	assert.Equal(t, "localhost:6390", cfg.Database.Redis.Address)
	assert.True(t, cfg.Quota.Enabled)
}

func TestLoadFromFile_GeminiKey(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := LoadFromFile(writeConfig(t, "completion:\n  provider: gemini\n"))
	require.NoError(t, err)
	assert.Equal(t, "g-key", cfg.Completion.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Completion.Model)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	clearProviderEnv(t)
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"unknown provider", "completion:\n  provider: llama\n", "completion.provider"},
		{"bad merge policy", "pipeline:\n  merge_arrays: union\n", "pipeline.merge_arrays"},
		{"quota without redis", "quota:\n  enabled: true\n", "quota.enabled"},
		{"temperature out of range", "completion:\n  temperature: 3\n", "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWorkerHelpers(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"proposal-style": {Enabled: false}}}
	assert.False(t, GetWorkerConfig(cfg, "proposal-style").Enabled)
	assert.True(t, GetWorkerConfig(cfg, "proposal-chat").Enabled)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "proposal-chat").MaxJobsActive)
	assert.Error(t, ValidateForWorkers(cfg))
}
