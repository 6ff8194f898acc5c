package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/yohannes916/mismartera/pkg/indicator"
)

type Mode string

const (
	ModeBacktest Mode = "backtest"
	ModeLive     Mode = "live"
)

const DateLayout = "2006-01-02"

// Config is the full session configuration, loaded from YAML.
type Config struct {
	Mode          Mode              `yaml:"mode" json:"mode"`
	ExchangeGroup string            `yaml:"exchange_group" json:"exchange_group"`
	Backtest      *BacktestConfig   `yaml:"backtest_config,omitempty" json:"backtest_config,omitempty"`
	SessionData   SessionDataConfig `yaml:"session_data_config" json:"session_data_config"`

	// DataDir is the storage root for the Parquet layout.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type BacktestConfig struct {
	StartDate string `yaml:"start_date" json:"start_date"`
	EndDate   string `yaml:"end_date" json:"end_date"`

	// SpeedMultiplier 0 means data-driven (no delay); >0 sleeps
	// 60/speed seconds per virtual minute.
	SpeedMultiplier float64 `yaml:"speed_multiplier" json:"speed_multiplier"`
}

func (c *BacktestConfig) Window() (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return start, end, errors.Wrapf(err, "invalid start_date %q", c.StartDate)
	}
	end, err = time.Parse(DateLayout, c.EndDate)
	if err != nil {
		return start, end, errors.Wrapf(err, "invalid end_date %q", c.EndDate)
	}
	if end.Before(start) {
		return start, end, errors.Errorf("end_date %s before start_date %s", c.EndDate, c.StartDate)
	}
	return start, end, nil
}

type SessionDataConfig struct {
	Symbols    []string          `yaml:"symbols" json:"symbols"`
	Streams    []string          `yaml:"streams" json:"streams"`
	Historical *HistoricalConfig `yaml:"historical,omitempty" json:"historical,omitempty"`
	Streaming  StreamingConfig   `yaml:"streaming" json:"streaming"`
	Indicators IndicatorsConfig  `yaml:"indicators" json:"indicators"`
}

type HistoricalConfig struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	TrailingDays int      `yaml:"trailing_days" json:"trailing_days"`
	Intervals    []string `yaml:"intervals" json:"intervals"`
}

type StreamingConfig struct {
	CatchupThresholdSeconds int `yaml:"catchup_threshold_seconds" json:"catchup_threshold_seconds"`
	CatchupCheckInterval    int `yaml:"catchup_check_interval" json:"catchup_check_interval"`
}

type IndicatorsConfig struct {
	Session    []indicator.Config          `yaml:"session" json:"session"`
	Historical []HistoricalIndicatorConfig `yaml:"historical" json:"historical"`
}

// HistoricalIndicatorConfig is a session indicator plus the lookback unit
// used when translating its warmup to calendar days.
type HistoricalIndicatorConfig struct {
	indicator.Config `yaml:",inline"`

	// Unit is "days" or "weeks"; empty means days.
	Unit string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// Defaults fills in the streaming and storage defaults.
func (c *Config) Defaults() {
	if c.SessionData.Streaming.CatchupThresholdSeconds == 0 {
		c.SessionData.Streaming.CatchupThresholdSeconds = 60
	}
	if c.SessionData.Streaming.CatchupCheckInterval == 0 {
		c.SessionData.Streaming.CatchupCheckInterval = 10
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModeBacktest:
		if c.Backtest == nil {
			return errors.New("backtest mode requires backtest_config")
		}
		if _, _, err := c.Backtest.Window(); err != nil {
			return err
		}
	case ModeLive:
	default:
		return errors.Errorf("unknown mode %q", c.Mode)
	}

	if c.ExchangeGroup == "" {
		return errors.New("exchange_group is required")
	}
	if len(c.SessionData.Symbols) == 0 {
		return errors.New("session_data_config.symbols is empty")
	}
	return nil
}

// Load reads, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}

	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
