package session

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/types"
)

// AddedBy records which caller introduced a symbol into the session.
type AddedBy string

const (
	AddedByConfig   AddedBy = "config"
	AddedByStrategy AddedBy = "strategy"
	AddedByScanner  AddedBy = "scanner"
	AddedByAdhoc    AddedBy = "adhoc"
)

// SymbolMetadata tracks how a symbol entered the session and whether it
// carries the full session-config structure or a minimal adhoc one.
type SymbolMetadata struct {
	MeetsSessionConfigRequirements bool      `json:"meets_session_config_requirements"`
	AddedBy                        AddedBy   `json:"added_by"`
	AutoProvisioned                bool      `json:"auto_provisioned"`
	AddedAt                        time.Time `json:"added_at"`
	UpgradedFromAdhoc              bool      `json:"upgraded_from_adhoc"`
}

// BarIntervalData is the per-(symbol, interval) bar store. Self-describing:
// Derived and Base say where the bars come from, Quality and Gaps carry the
// data-quality verdict, Updated flags unconsumed appends.
type BarIntervalData struct {
	Derived bool           `json:"derived"`
	Base    types.Interval `json:"base,omitempty"`

	Data    []types.Bar     `json:"data"`
	Quality float64         `json:"quality"`
	Gaps    []types.GapInfo `json:"gaps"`

	// Updated is set on append and cleared by the consumer after it reads.
	Updated bool `json:"updated"`
}

// IndicatorData embeds an indicator's config, its stateful computation
// object and the latest value. Keyed in SymbolSessionData.Indicators by
// Config.Key().
type IndicatorData struct {
	Config       indicator.Config    `json:"config"`
	State        indicator.Indicator `json:"state"`
	CurrentValue float64             `json:"current_value"`
	LastUpdated  time.Time           `json:"last_updated"`
	Valid        bool                `json:"valid"`

	// warmup bookkeeping
	Warmup   int `json:"-"`
	BarsSeen int `json:"-"`
}

// Update feeds one bar into the indicator state and refreshes the derived
// value fields.
func (d *IndicatorData) Update(bar types.Bar) {
	d.State.PushBar(bar)
	d.BarsSeen++
	d.CurrentValue = d.State.Last()
	d.LastUpdated = bar.Timestamp
	d.Valid = d.BarsSeen >= d.Warmup && d.State.Length() > 0
}

// SessionMetrics is the per-symbol running session tally, reset on roll.
type SessionMetrics struct {
	Volume    int64                  `json:"volume"`
	High      float64                `json:"high"`
	Low       float64                `json:"low"`
	LastPrice float64                `json:"last_price"`
	BarCounts map[types.Interval]int `json:"bar_counts"`
}

func newSessionMetrics() SessionMetrics {
	return SessionMetrics{BarCounts: make(map[types.Interval]int)}
}

func (m *SessionMetrics) observe(interval types.Interval, bar types.Bar, isBase bool) {
	m.BarCounts[interval]++
	if !isBase {
		return
	}

	m.Volume += bar.Volume
	m.LastPrice = bar.Close
	if m.High == 0 || bar.High > m.High {
		m.High = bar.High
	}
	if m.Low == 0 || bar.Low < m.Low {
		m.Low = bar.Low
	}
}

// HistoricalData holds bars rolled out of past sessions, keyed by interval
// and then by the session date ("2006-01-02").
type HistoricalData struct {
	Bars map[types.Interval]map[string][]types.Bar `json:"bars"`
}

func newHistoricalData() HistoricalData {
	return HistoricalData{Bars: make(map[types.Interval]map[string][]types.Bar)}
}

func (h *HistoricalData) add(interval types.Interval, date string, bars []types.Bar) {
	if len(bars) == 0 {
		return
	}
	byDate, ok := h.Bars[interval]
	if !ok {
		byDate = make(map[string][]types.Bar)
		h.Bars[interval] = byDate
	}
	byDate[date] = append(byDate[date], bars...)
}

// SymbolSessionData is everything the session tracks for one symbol.
type SymbolSessionData struct {
	Symbol       string         `json:"symbol"`
	BaseInterval types.Interval `json:"base_interval"`

	Bars       map[types.Interval]*BarIntervalData `json:"bars"`
	Indicators map[string]*IndicatorData           `json:"indicators"`
	Metrics    SessionMetrics                      `json:"metrics"`
	Historical HistoricalData                      `json:"historical"`
	Metadata   SymbolMetadata                      `json:"metadata"`
}

// NewSymbolSessionData builds the symbol structure with its base interval
// registered as the single non-derived entry.
func NewSymbolSessionData(symbol string, base types.Interval, meta SymbolMetadata) *SymbolSessionData {
	s := &SymbolSessionData{
		Symbol:       symbol,
		BaseInterval: base,
		Bars:         make(map[types.Interval]*BarIntervalData),
		Indicators:   make(map[string]*IndicatorData),
		Metrics:      newSessionMetrics(),
		Historical:   newHistoricalData(),
		Metadata:     meta,
	}
	s.Bars[base] = &BarIntervalData{}
	return s
}

// AddInterval registers a derived interval backed by the symbol's base.
// Adding the base interval again or a duplicate derived interval is a no-op.
func (s *SymbolSessionData) AddInterval(interval types.Interval) {
	if _, ok := s.Bars[interval]; ok {
		return
	}
	s.Bars[interval] = &BarIntervalData{Derived: true, Base: s.BaseInterval}
}

// DerivedIntervals lists the intervals with Derived set, unordered.
func (s *SymbolSessionData) DerivedIntervals() []types.Interval {
	var out []types.Interval
	for interval, d := range s.Bars {
		if d.Derived {
			out = append(out, interval)
		}
	}
	return out
}
