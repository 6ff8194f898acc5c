package indicator

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Config describes one indicator instance. The zero Period is reserved for
// indicators that have no window (vwap, obv, cma) and for MACD, whose
// windows come from Params.
type Config struct {
	Name     string             `json:"name" yaml:"name"`
	Period   int                `json:"period,omitempty" yaml:"period,omitempty"`
	Interval types.Interval     `json:"interval" yaml:"interval"`
	Params   map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// Key returns the session-data indicator key, e.g. "sma_20_5m" or
// "vwap_1m" for zero-period indicators.
func (c Config) Key() string {
	if c.Period == 0 {
		return fmt.Sprintf("%s_%s", c.Name, c.Interval)
	}
	return fmt.Sprintf("%s_%d_%s", c.Name, c.Period, c.Interval)
}

func (c Config) param(name string, def float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}

func (c Config) iw() types.IntervalWindow {
	return types.IntervalWindow{Interval: c.Interval, Window: c.Period}
}

// Builder constructs a fresh indicator from its config.
type Builder func(cfg Config) Indicator

var registry = map[string]Builder{
	"sma":  func(cfg Config) Indicator { return &SMA{IntervalWindow: cfg.iw()} },
	"ema":  func(cfg Config) Indicator { return &EWMA{IntervalWindow: cfg.iw()} },
	"wma":  func(cfg Config) Indicator { return &WMA{IntervalWindow: cfg.iw()} },
	"dema": func(cfg Config) Indicator { return &DEMA{IntervalWindow: cfg.iw()} },
	"tema": func(cfg Config) Indicator { return &TEMA{IntervalWindow: cfg.iw()} },
	"rma":  func(cfg Config) Indicator { return &RMA{IntervalWindow: cfg.iw()} },
	"rsi":  func(cfg Config) Indicator { return &RSI{IntervalWindow: cfg.iw()} },
	"atr":  func(cfg Config) Indicator { return &ATR{IntervalWindow: cfg.iw()} },
	"cci":  func(cfg Config) Indicator { return &CCI{IntervalWindow: cfg.iw()} },
	"tma":  func(cfg Config) Indicator { return &TMA{IntervalWindow: cfg.iw()} },
	"cma":  func(cfg Config) Indicator { return &CMA{Interval: cfg.Interval} },
	"obv":  func(cfg Config) Indicator { return &OBV{IntervalWindow: cfg.iw()} },
	"vwap": func(cfg Config) Indicator { return &VWAP{IntervalWindow: cfg.iw()} },

	"vidya": func(cfg Config) Indicator { return &VIDYA{IntervalWindow: cfg.iw()} },
	"zlema": func(cfg Config) Indicator { return &ZLEMA{IntervalWindow: cfg.iw()} },
	"stoch": func(cfg Config) Indicator { return &STOCH{IntervalWindow: cfg.iw()} },

	"boll": func(cfg Config) Indicator {
		return &BOLL{IntervalWindow: cfg.iw(), K: cfg.param("k", 2.0)}
	},
	"macd": func(cfg Config) Indicator {
		return &MACD{
			IntervalWindow: cfg.iw(),
			FastWindow:     int(cfg.param("fast", DefaultMACDFast)),
			SlowWindow:     int(cfg.param("slow", DefaultMACDSlow)),
			SignalWindow:   int(cfg.param("signal", DefaultMACDSignal)),
		}
	},
	"high_low": func(cfg Config) Indicator { return &HIGHLOW{IntervalWindow: cfg.iw()} },
	"swing_high": func(cfg Config) Indicator {
		return &SWING{IntervalWindow: cfg.iw()}
	},
	"swing_low": func(cfg Config) Indicator {
		return &SWING{IntervalWindow: cfg.iw(), Low: true}
	},
}

// Supported returns the registered indicator names, sorted.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the indicator described by cfg.
func New(cfg Config) (Indicator, error) {
	builder, ok := registry[cfg.Name]
	if !ok {
		return nil, errors.Wrapf(types.ErrIndicatorNotFound, "%q", cfg.Name)
	}
	return builder(cfg), nil
}

// Warmup returns the number of bars the indicator must observe before its
// value is considered valid.
func Warmup(cfg Config) (int, error) {
	n := cfg.Period
	switch cfg.Name {
	case "sma", "ema", "wma", "boll", "tma", "rma", "cci", "zlema", "high_low":
		return n, nil
	case "dema":
		return 2 * n, nil
	case "tema":
		return 3 * n, nil
	case "rsi", "atr", "vidya":
		return n + 1, nil
	case "macd":
		return int(cfg.param("slow", DefaultMACDSlow)), nil
	case "stoch":
		return n + DPeriod, nil
	case "swing_high", "swing_low":
		return 2*n + 1, nil
	case "vwap", "obv", "cma":
		return 1, nil
	}
	return 0, errors.Wrapf(types.ErrIndicatorNotFound, "%q", cfg.Name)
}
