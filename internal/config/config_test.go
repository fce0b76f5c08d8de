package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsFillUnsetFields(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  env: prod\n"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9991", cfg.App.HTTPAddr)
	assert.Equal(t, 0.6, cfg.Pipeline.ConfidenceThreshold)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.AggregationWindow())
	assert.Equal(t, "5m", cfg.Pipeline.CycleInterval)
	assert.Equal(t, 100000.0, cfg.Risk.InitialEquityUSD)
	assert.True(t, cfg.Risk.EnableExposure)
	assert.True(t, cfg.Risk.EnableDailyLoss)
	assert.Equal(t, "rule", cfg.Evaluator.Mode)
	assert.Equal(t, "paper", cfg.Broker.Mode)
	assert.Equal(t, 72*time.Hour, cfg.Position.MaxHold())
	assert.Equal(t, []string{"AAPL", "NVDA", "TSLA", "MSFT", "SPY"}, cfg.Market.WatchSymbols)
	assert.Equal(t, "Asia/Jerusalem", cfg.Inbox.Timezone)
}

func TestLoad_ExplicitValuesSurvive(t *testing.T) {
	body := `
pipeline:
  confidence_threshold: 0.75
risk:
  enable_correlation: false
  daily_loss_limit_fraction: 0.0
market:
  watch_symbols: [nvda, " tsla "]
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Pipeline.ConfidenceThreshold)
	assert.False(t, cfg.Risk.EnableCorrelation, "explicit false is not overwritten by the default true")
	assert.Zero(t, cfg.Risk.DailyLossLimitFraction, "explicit zero survives defaulting")
	assert.Equal(t, []string{"NVDA", "TSLA"}, cfg.Market.WatchSymbols)
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"threshold out of range", "pipeline:\n  confidence_threshold: 1.5\n"},
		{"bad stop distance", "pipeline:\n  stop_distance_fraction: 2\n"},
		{"bad max hold", "position:\n  max_hold_duration: forever\n"},
		{"unknown evaluator mode", "evaluator:\n  mode: oracle\n"},
		{"openai mode without url", "evaluator:\n  mode: openai\n  model: gpt-4o-mini\n"},
		{"openai mode without model", "evaluator:\n  mode: openai\n  api_url: https://api.openai.com/v1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_OpenAIModeComplete(t *testing.T) {
	body := `
evaluator:
  mode: openai
  api_url: https://api.openai.com/v1
  model: gpt-4o-mini
`
	cfg, err := Load(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Evaluator.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Evaluator.BreakerThreshold)
}

func TestLoad_EnvOverridesAPIKey(t *testing.T) {
	t.Setenv("EVALUATOR_API_KEY", "sk-from-env")
	cfg, err := Load(writeConfig(t, "evaluator:\n  api_key: sk-from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Evaluator.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "pipeline: [not, a, map]"))
	assert.Error(t, err)
}
