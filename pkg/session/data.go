package session

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/types"
)

const dateLayout = "2006-01-02"

// SessionData is the process-wide snapshot of the running session: symbols,
// bars, indicators, metrics, quality and gaps. It is the only shared state
// between the coordinator, the data processor and the quality manager, and
// it is guarded by a single read/write lock. All public methods are safe to
// call from any goroutine.
//
// External readers pass internal=false and see empty bar results while the
// session is deactivated (lag gating); internal consumers pass internal=true
// and are unaffected.
type SessionData struct {
	mu sync.RWMutex

	symbols       map[string]*SymbolSessionData
	sessionActive bool
	sessionDate   time.Time
}

func NewSessionData() *SessionData {
	return &SessionData{
		symbols: make(map[string]*SymbolSessionData),
	}
}

// RegisterSymbol installs sym into the session. Registering a symbol that
// is already active returns ErrDuplicateSymbol.
func (sd *SessionData) RegisterSymbol(sym *SymbolSessionData) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	if _, ok := sd.symbols[sym.Symbol]; ok {
		return errors.Wrap(types.ErrDuplicateSymbol, sym.Symbol)
	}

	sd.symbols[sym.Symbol] = sym
	return nil
}

func (sd *SessionData) RemoveSymbol(symbol string) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	if _, ok := sd.symbols[symbol]; !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}

	delete(sd.symbols, symbol)
	return nil
}

// Clear drops every symbol. Used by session teardown; nothing survives a
// session boundary except the config symbol list held by the coordinator.
func (sd *SessionData) Clear() {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.symbols = make(map[string]*SymbolSessionData)
}

// HasSymbol reports whether the symbol is active.
func (sd *SessionData) HasSymbol(symbol string) bool {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	_, ok := sd.symbols[symbol]
	return ok
}

// Metadata returns a copy of the symbol's metadata.
func (sd *SessionData) Metadata(symbol string) (SymbolMetadata, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return SymbolMetadata{}, errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	return sym.Metadata, nil
}

// BaseInterval returns the symbol's streamed base interval.
func (sd *SessionData) BaseInterval(symbol string) (types.Interval, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return "", errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	return sym.BaseInterval, nil
}

// AddInterval registers a derived interval on an active symbol.
func (sd *SessionData) AddInterval(symbol string, interval types.Interval) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	sym.AddInterval(interval)
	return nil
}

// UpgradeSymbol promotes an adhoc symbol to full session-config status
// without touching its existing bar structures.
func (sd *SessionData) UpgradeSymbol(symbol string, addedBy AddedBy) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	sym.Metadata.MeetsSessionConfigRequirements = true
	sym.Metadata.UpgradedFromAdhoc = true
	sym.Metadata.AddedBy = addedBy
	return nil
}

// DemoteSymbol clears the session-config flag after a provisioning step
// failure; the symbol keeps operating with its minimal structure.
func (sd *SessionData) DemoteSymbol(symbol string) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	sym.Metadata.MeetsSessionConfigRequirements = false
	return nil
}

// AddHistoricalBars stores pre-session bars grouped by their exchange-local
// date.
func (sd *SessionData) AddHistoricalBars(symbol string, interval types.Interval, bars []types.Bar) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}

	byDate := make(map[string][]types.Bar)
	for _, b := range bars {
		key := b.Timestamp.Format(dateLayout)
		byDate[key] = append(byDate[key], b)
	}
	for date, group := range byDate {
		sym.Historical.add(interval, date, group)
	}
	return nil
}

// HistoricalBars returns the archived bars of an interval in date order.
func (sd *SessionData) HistoricalBars(symbol string, interval types.Interval) []types.Bar {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return nil
	}
	byDate, ok := sym.Historical.Bars[interval]
	if !ok {
		return nil
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var out []types.Bar
	for _, date := range dates {
		out = append(out, byDate[date]...)
	}
	return out
}

// AppendBar appends a bar to bars[interval] and marks the interval updated.
// Timestamps must be strictly increasing per (symbol, interval); a bar at or
// before the last appended timestamp is rejected with ErrOutOfOrderBar and
// leaves the store untouched.
func (sd *SessionData) AppendBar(symbol string, interval types.Interval, bar types.Bar) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}

	data, ok := sym.Bars[interval]
	if !ok {
		return errors.Wrapf(types.ErrSymbolNotFound, "%s: interval %s not provisioned", symbol, interval)
	}

	if n := len(data.Data); n > 0 && !bar.Timestamp.After(data.Data[n-1].Timestamp) {
		return errors.Wrapf(types.ErrOutOfOrderBar, "%s %s: %s <= %s",
			symbol, interval, bar.Timestamp, data.Data[n-1].Timestamp)
	}

	data.Data = append(data.Data, bar)
	data.Updated = true
	sym.Metrics.observe(interval, bar, interval == sym.BaseInterval)

	// bounded growth: sub-daily deques are capped by the session-day length;
	// overflow rolls into historical under the current session date
	if interval.IsSubDaily() {
		if max := 24 * 60 * 60 / interval.Seconds(); len(data.Data) > max {
			overflow := len(data.Data) - max
			sym.Historical.add(interval, sd.sessionDate.Format(dateLayout), data.Data[:overflow])
			data.Data = data.Data[overflow:]
		}
	}

	return nil
}

// GetBarsRef returns the live bar slice without copying. External reads
// (internal=false) come back empty while the session is inactive. The
// returned slice must not be mutated.
func (sd *SessionData) GetBarsRef(symbol string, interval types.Interval, internal bool) ([]types.Bar, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	if !internal && !sd.sessionActive {
		return nil, nil
	}

	sym, ok := sd.symbols[symbol]
	if !ok {
		return nil, errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	data, ok := sym.Bars[interval]
	if !ok {
		return nil, errors.Wrapf(types.ErrSymbolNotFound, "%s: interval %s not provisioned", symbol, interval)
	}
	return data.Data, nil
}

// GetBars returns a filtered copy of the bars. since and limit are optional
// (zero values disable them); limit keeps the newest bars.
func (sd *SessionData) GetBars(symbol string, interval types.Interval, since time.Time, limit int, internal bool) ([]types.Bar, error) {
	ref, err := sd.GetBarsRef(symbol, interval, internal)
	if err != nil || ref == nil {
		return nil, err
	}

	sd.mu.RLock()
	defer sd.mu.RUnlock()

	start := 0
	if !since.IsZero() {
		start = sort.Search(len(ref), func(i int) bool {
			return !ref[i].Timestamp.Before(since)
		})
	}
	out := ref[start:]
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}

	cp := make([]types.Bar, len(out))
	copy(cp, out)
	return cp, nil
}

// ActiveSymbols is derived from the symbol map keys; there is no secondary
// index of active symbols anywhere in the system.
func (sd *SessionData) ActiveSymbols() []string {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	out := make([]string, 0, len(sd.symbols))
	for symbol := range sd.symbols {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// SymbolsWithDerived maps each symbol to the intervals it derives, for the
// data processor's poll cycle.
func (sd *SessionData) SymbolsWithDerived() map[string][]types.Interval {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	out := make(map[string][]types.Interval)
	for symbol, sym := range sd.symbols {
		if derived := sym.DerivedIntervals(); len(derived) > 0 {
			out[symbol] = derived
		}
	}
	return out
}

// IsUpdated reports the interval's updated flag.
func (sd *SessionData) IsUpdated(symbol string, interval types.Interval) bool {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	if sym, ok := sd.symbols[symbol]; ok {
		if data, ok := sym.Bars[interval]; ok {
			return data.Updated
		}
	}
	return false
}

// ClearUpdated clears the interval's updated flag once every consumer that
// depends on it has drained the append.
func (sd *SessionData) ClearUpdated(symbol string, interval types.Interval) {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	if sym, ok := sd.symbols[symbol]; ok {
		if data, ok := sym.Bars[interval]; ok {
			data.Updated = false
		}
	}
}

func (sd *SessionData) SetQuality(symbol string, interval types.Interval, quality float64) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	data, ok := sym.Bars[interval]
	if !ok {
		return errors.Wrapf(types.ErrSymbolNotFound, "%s: interval %s not provisioned", symbol, interval)
	}
	data.Quality = quality
	return nil
}

func (sd *SessionData) Quality(symbol string, interval types.Interval) (float64, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return 0, errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	data, ok := sym.Bars[interval]
	if !ok {
		return 0, errors.Wrapf(types.ErrSymbolNotFound, "%s: interval %s not provisioned", symbol, interval)
	}
	return data.Quality, nil
}

func (sd *SessionData) SetGaps(symbol string, interval types.Interval, gaps []types.GapInfo) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	data, ok := sym.Bars[interval]
	if !ok {
		return errors.Wrapf(types.ErrSymbolNotFound, "%s: interval %s not provisioned", symbol, interval)
	}
	data.Gaps = gaps
	return nil
}

func (sd *SessionData) Gaps(symbol string, interval types.Interval) ([]types.GapInfo, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return nil, errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	data, ok := sym.Bars[interval]
	if !ok {
		return nil, errors.Wrapf(types.ErrSymbolNotFound, "%s: interval %s not provisioned", symbol, interval)
	}
	return data.Gaps, nil
}

// Indicator returns the indicator record for the key, e.g. "sma_20_5m".
func (sd *SessionData) Indicator(symbol, key string) (*IndicatorData, error) {
	sd.mu.RLock()
	defer sd.mu.RUnlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return nil, errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	data, ok := sym.Indicators[key]
	if !ok {
		return nil, errors.Wrapf(types.ErrIndicatorNotFound, "%s: %s", symbol, key)
	}
	return data, nil
}

func (sd *SessionData) SetIndicator(symbol, key string, data *IndicatorData) error {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return errors.Wrap(types.ErrSymbolNotFound, symbol)
	}
	sym.Indicators[key] = data
	return nil
}

// UpdateIndicators feeds a bar to every indicator of the symbol keyed to the
// given interval. Called inline by the data processor after each append.
func (sd *SessionData) UpdateIndicators(symbol string, interval types.Interval, bar types.Bar) {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	sym, ok := sd.symbols[symbol]
	if !ok {
		return
	}
	for _, ind := range sym.Indicators {
		if ind.Config.Interval == interval {
			ind.Update(bar)
		}
	}
}

func (sd *SessionData) ActivateSession() {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.sessionActive = true
}

func (sd *SessionData) DeactivateSession() {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.sessionActive = false
}

func (sd *SessionData) SessionActive() bool {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	return sd.sessionActive
}

func (sd *SessionData) SessionDate() time.Time {
	sd.mu.RLock()
	defer sd.mu.RUnlock()
	return sd.sessionDate
}

func (sd *SessionData) SetSessionDate(date time.Time) {
	sd.mu.Lock()
	defer sd.mu.Unlock()
	sd.sessionDate = date
}

// RollSession archives the current session's bars into historical, resets
// per-symbol metrics and resets indicator values to invalid. Indicator
// structures persist: each registered indicator keeps its config and key and
// starts from a fresh state object. Historical indicator values are never
// recomputed here.
func (sd *SessionData) RollSession(newDate time.Time) {
	sd.mu.Lock()
	defer sd.mu.Unlock()

	date := sd.sessionDate.Format(dateLayout)
	for _, sym := range sd.symbols {
		for interval, data := range sym.Bars {
			sym.Historical.add(interval, date, data.Data)
			data.Data = nil
			data.Updated = false
			data.Quality = 0
			data.Gaps = nil
		}

		sym.Metrics = newSessionMetrics()

		for key, ind := range sym.Indicators {
			state, err := indicator.New(ind.Config)
			if err != nil {
				log.WithError(err).Errorf("roll: rebuilding indicator %s for %s", key, sym.Symbol)
				continue
			}
			ind.State = state
			ind.CurrentValue = 0
			ind.BarsSeen = 0
			ind.Valid = false
		}
	}

	sd.sessionDate = newDate
}
