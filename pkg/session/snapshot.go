package session

import (
	"encoding/json"
	"time"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/types"
)

// Snapshot is the read-only JSON projection of SessionData consumed by
// external analysis.
type Snapshot struct {
	SessionDate   string                    `json:"session_date"`
	SessionActive bool                      `json:"session_active"`
	Symbols       map[string]SymbolSnapshot `json:"symbols"`
}

type SymbolSnapshot struct {
	Symbol       string                           `json:"symbol"`
	BaseInterval types.Interval                   `json:"base_interval"`
	Metadata     SymbolMetadata                   `json:"metadata"`
	Bars         map[string]BarIntervalSnapshot   `json:"bars"`
	Indicators   map[string]IndicatorSnapshot     `json:"indicators"`
	Metrics      SessionMetrics                   `json:"metrics"`
	Historical   map[string]map[string]int        `json:"historical_bar_counts,omitempty"`
}

type BarIntervalSnapshot struct {
	Derived bool            `json:"derived"`
	Base    types.Interval  `json:"base,omitempty"`
	Bars    []types.Bar     `json:"bars"`
	Quality float64         `json:"quality"`
	Gaps    []types.GapInfo `json:"gaps"`
}

type IndicatorSnapshot struct {
	Config       indicator.Config `json:"config"`
	State        interface{}      `json:"state"`
	CurrentValue float64          `json:"current_value"`
	LastUpdated  time.Time        `json:"last_updated"`
	Valid        bool             `json:"valid"`
}

// Snapshot copies the current state under the read lock. Bar data is empty
// for every interval while the session is inactive, matching the external
// read gating.
func (sd *SessionData) Snapshot() Snapshot {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	snap := Snapshot{
		SessionDate:   sd.sessionDate.Format(dateLayout),
		SessionActive: sd.sessionActive,
		Symbols:       make(map[string]SymbolSnapshot, len(sd.symbols)),
	}

	for symbol, sym := range sd.symbols {
		ss := SymbolSnapshot{
			Symbol:       symbol,
			BaseInterval: sym.BaseInterval,
			Metadata:     sym.Metadata,
			Bars:         make(map[string]BarIntervalSnapshot, len(sym.Bars)),
			Indicators:   make(map[string]IndicatorSnapshot, len(sym.Indicators)),
			Metrics:      sym.Metrics,
		}

		for interval, data := range sym.Bars {
			bs := BarIntervalSnapshot{
				Derived: data.Derived,
				Base:    data.Base,
				Quality: data.Quality,
				Gaps:    append([]types.GapInfo(nil), data.Gaps...),
			}
			if sd.sessionActive {
				bs.Bars = append([]types.Bar(nil), data.Data...)
			}
			ss.Bars[interval.String()] = bs
		}

		for key, ind := range sym.Indicators {
			ss.Indicators[key] = IndicatorSnapshot{
				Config:       ind.Config,
				State:        ind.State,
				CurrentValue: ind.CurrentValue,
				LastUpdated:  ind.LastUpdated,
				Valid:        ind.Valid,
			}
		}

		if len(sym.Historical.Bars) > 0 {
			ss.Historical = make(map[string]map[string]int)
			for interval, byDate := range sym.Historical.Bars {
				counts := make(map[string]int, len(byDate))
				for date, bars := range byDate {
					counts[date] = len(bars)
				}
				ss.Historical[interval.String()] = counts
			}
		}

		snap.Symbols[symbol] = ss
	}

	return snap
}

// MarshalJSON renders the snapshot; SessionData itself marshals through it
// so handing the struct to an encoder stays safe.
func (sd *SessionData) MarshalJSON() ([]byte, error) {
	return json.Marshal(sd.Snapshot())
}
