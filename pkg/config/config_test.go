package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yohannes916/mismartera/pkg/types"
)

const sampleConfig = `
mode: backtest
exchange_group: US_EQUITY
data_dir: /var/data/bars
backtest_config:
  start_date: "2024-01-02"
  end_date: "2024-01-05"
  speed_multiplier: 0
session_data_config:
  symbols: [AAPL, MSFT]
  streams: ["1m", "5m", "1d"]
  historical:
    enabled: true
    trailing_days: 30
    intervals: ["1m", "1d"]
  streaming:
    catchup_threshold_seconds: 120
    catchup_check_interval: 5
  indicators:
    session:
      - { name: sma, period: 20, interval: 5m }
      - { name: vwap, interval: 1m }
    historical:
      - { name: high_low, period: 52, interval: 1w, unit: weeks }
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, ModeBacktest, cfg.Mode)
	assert.Equal(t, "US_EQUITY", cfg.ExchangeGroup)
	assert.Equal(t, "/var/data/bars", cfg.DataDir)
	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.SessionData.Symbols)
	assert.Equal(t, 120, cfg.SessionData.Streaming.CatchupThresholdSeconds)
	assert.Equal(t, 5, cfg.SessionData.Streaming.CatchupCheckInterval)

	require.Len(t, cfg.SessionData.Indicators.Session, 2)
	assert.Equal(t, "sma_20_5m", cfg.SessionData.Indicators.Session[0].Key())
	assert.Equal(t, "vwap_1m", cfg.SessionData.Indicators.Session[1].Key())

	require.Len(t, cfg.SessionData.Indicators.Historical, 1)
	assert.Equal(t, "weeks", cfg.SessionData.Indicators.Historical[0].Unit)
	assert.Equal(t, types.Interval1w, cfg.SessionData.Indicators.Historical[0].Interval)

	start, end, err := cfg.Backtest.Window()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", start.Format(DateLayout))
	assert.Equal(t, "2024-01-05", end.Format(DateLayout))
}

func TestDefaults(t *testing.T) {
	cfg := &Config{
		Mode:          ModeLive,
		ExchangeGroup: "US_EQUITY",
		SessionData:   SessionDataConfig{Symbols: []string{"AAPL"}},
	}
	cfg.Defaults()

	assert.Equal(t, 60, cfg.SessionData.Streaming.CatchupThresholdSeconds)
	assert.Equal(t, 10, cfg.SessionData.Streaming.CatchupCheckInterval)
	assert.Equal(t, "data", cfg.DataDir)
	assert.NoError(t, cfg.Validate())
}

func TestValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown mode", "mode: paper\nexchange_group: US_EQUITY\nsession_data_config:\n  symbols: [AAPL]\n"},
		{"missing backtest config", "mode: backtest\nexchange_group: US_EQUITY\nsession_data_config:\n  symbols: [AAPL]\n"},
		{"no symbols", "mode: live\nexchange_group: US_EQUITY\nsession_data_config:\n  symbols: []\n"},
		{"no exchange group", "mode: live\nsession_data_config:\n  symbols: [AAPL]\n"},
		{"bad window", "mode: backtest\nexchange_group: US_EQUITY\nbacktest_config:\n  start_date: \"2024-02-01\"\n  end_date: \"2024-01-01\"\nsession_data_config:\n  symbols: [AAPL]\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
