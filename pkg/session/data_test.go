package session

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/types"
)

func testBar(ts time.Time, close float64) types.Bar {
	return types.Bar{Timestamp: ts, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 100}
}

func newTestSessionData(t *testing.T) (*SessionData, time.Time) {
	t.Helper()

	sd := NewSessionData()
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	sd.SetSessionDate(date)

	sym := NewSymbolSessionData("AAPL", types.Interval1m, SymbolMetadata{
		MeetsSessionConfigRequirements: true,
		AddedBy:                        AddedByConfig,
		AddedAt:                        date,
	})
	sym.AddInterval(types.Interval5m)
	require.NoError(t, sd.RegisterSymbol(sym))
	return sd, date
}

func TestAppendBarMonotonic(t *testing.T) {
	sd, date := newTestSessionData(t)
	t0 := date.Add(9*time.Hour + 30*time.Minute)

	require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, testBar(t0, 100)))
	require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, testBar(t0.Add(time.Minute), 101)))

	// equal timestamp rejected, state unchanged
	err := sd.AppendBar("AAPL", types.Interval1m, testBar(t0.Add(time.Minute), 102))
	assert.True(t, errors.Is(err, types.ErrOutOfOrderBar))

	// earlier timestamp rejected
	err = sd.AppendBar("AAPL", types.Interval1m, testBar(t0, 99))
	assert.True(t, errors.Is(err, types.ErrOutOfOrderBar))

	bars, err := sd.GetBarsRef("AAPL", types.Interval1m, true)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 101.0, bars[1].Close, 1e-9)
}

func TestAppendBarUnknownSymbol(t *testing.T) {
	sd, date := newTestSessionData(t)

	err := sd.AppendBar("TSLA", types.Interval1m, testBar(date, 100))
	assert.True(t, errors.Is(err, types.ErrSymbolNotFound))
}

func TestExternalReadsGatedBySessionActive(t *testing.T) {
	sd, date := newTestSessionData(t)
	t0 := date.Add(9*time.Hour + 30*time.Minute)
	require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, testBar(t0, 100)))

	// session inactive: external reads empty, internal unaffected
	external, err := sd.GetBarsRef("AAPL", types.Interval1m, false)
	require.NoError(t, err)
	assert.Empty(t, external)

	internal, err := sd.GetBarsRef("AAPL", types.Interval1m, true)
	require.NoError(t, err)
	assert.Len(t, internal, 1)

	sd.ActivateSession()
	external, err = sd.GetBarsRef("AAPL", types.Interval1m, false)
	require.NoError(t, err)
	assert.Len(t, external, 1)

	sd.DeactivateSession()
	external, err = sd.GetBarsRef("AAPL", types.Interval1m, false)
	require.NoError(t, err)
	assert.Empty(t, external)
}

func TestGetBarsSinceAndLimit(t *testing.T) {
	sd, date := newTestSessionData(t)
	sd.ActivateSession()

	t0 := date.Add(9*time.Hour + 30*time.Minute)
	for i := 0; i < 5; i++ {
		require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, testBar(t0.Add(time.Duration(i)*time.Minute), float64(100+i))))
	}

	since, err := sd.GetBars("AAPL", types.Interval1m, t0.Add(2*time.Minute), 0, false)
	require.NoError(t, err)
	assert.Len(t, since, 3)
	assert.InDelta(t, 102.0, since[0].Close, 1e-9)

	limited, err := sd.GetBars("AAPL", types.Interval1m, time.Time{}, 2, false)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.InDelta(t, 104.0, limited[1].Close, 1e-9)
}

func TestRegisterDuplicateSymbol(t *testing.T) {
	sd, _ := newTestSessionData(t)

	err := sd.RegisterSymbol(NewSymbolSessionData("AAPL", types.Interval1m, SymbolMetadata{}))
	assert.True(t, errors.Is(err, types.ErrDuplicateSymbol))
}

func TestRemoveSymbol(t *testing.T) {
	sd, _ := newTestSessionData(t)

	require.NoError(t, sd.RemoveSymbol("AAPL"))
	assert.NotContains(t, sd.ActiveSymbols(), "AAPL")
	assert.False(t, sd.HasSymbol("AAPL"))

	err := sd.RemoveSymbol("AAPL")
	assert.True(t, errors.Is(err, types.ErrSymbolNotFound))
}

func TestSymbolsWithDerived(t *testing.T) {
	sd, _ := newTestSessionData(t)

	derived := sd.SymbolsWithDerived()
	require.Contains(t, derived, "AAPL")
	assert.Equal(t, []types.Interval{types.Interval5m}, derived["AAPL"])
}

func TestExactlyOneBaseInterval(t *testing.T) {
	sd, _ := newTestSessionData(t)
	snap := sd.Snapshot()

	nonDerived := 0
	for _, bars := range snap.Symbols["AAPL"].Bars {
		if !bars.Derived {
			nonDerived++
		}
	}
	assert.Equal(t, 1, nonDerived)
	assert.Equal(t, types.Interval1m, snap.Symbols["AAPL"].BaseInterval)
}

func TestUpdatedFlag(t *testing.T) {
	sd, date := newTestSessionData(t)
	t0 := date.Add(9*time.Hour + 30*time.Minute)

	assert.False(t, sd.IsUpdated("AAPL", types.Interval1m))
	require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, testBar(t0, 100)))
	assert.True(t, sd.IsUpdated("AAPL", types.Interval1m))

	sd.ClearUpdated("AAPL", types.Interval1m)
	assert.False(t, sd.IsUpdated("AAPL", types.Interval1m))
}

func TestRollSession(t *testing.T) {
	sd, date := newTestSessionData(t)
	t0 := date.Add(9*time.Hour + 30*time.Minute)

	cfg := indicator.Config{Name: "sma", Period: 2, Interval: types.Interval1m}
	state, err := indicator.New(cfg)
	require.NoError(t, err)
	require.NoError(t, sd.SetIndicator("AAPL", cfg.Key(), &IndicatorData{Config: cfg, State: state, Warmup: 2}))

	for i := 0; i < 3; i++ {
		bar := testBar(t0.Add(time.Duration(i)*time.Minute), float64(100+i))
		require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, bar))
		sd.UpdateIndicators("AAPL", types.Interval1m, bar)
	}

	ind, err := sd.Indicator("AAPL", cfg.Key())
	require.NoError(t, err)
	assert.True(t, ind.Valid)

	next := date.AddDate(0, 0, 1)
	sd.RollSession(next)

	// bars archived, indicator value reset but structure kept
	bars, err := sd.GetBarsRef("AAPL", types.Interval1m, true)
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Len(t, sd.HistoricalBars("AAPL", types.Interval1m), 3)

	ind, err = sd.Indicator("AAPL", cfg.Key())
	require.NoError(t, err)
	assert.False(t, ind.Valid)
	assert.Zero(t, ind.CurrentValue)
	assert.Equal(t, next, sd.SessionDate())

	// rolling again with no new bars is a no-op beyond the reset flags
	sd.RollSession(next.AddDate(0, 0, 1))
	assert.Len(t, sd.HistoricalBars("AAPL", types.Interval1m), 3)
}

func TestSnapshotGatesBars(t *testing.T) {
	sd, date := newTestSessionData(t)
	t0 := date.Add(9*time.Hour + 30*time.Minute)
	require.NoError(t, sd.AppendBar("AAPL", types.Interval1m, testBar(t0, 100)))

	snap := sd.Snapshot()
	assert.Empty(t, snap.Symbols["AAPL"].Bars["1m"].Bars)

	sd.ActivateSession()
	snap = sd.Snapshot()
	assert.Len(t, snap.Symbols["AAPL"].Bars["1m"].Bars, 1)
	assert.True(t, snap.SessionActive)
}

func TestUpgradeSymbol(t *testing.T) {
	sd := NewSessionData()
	sym := NewSymbolSessionData("TSLA", types.Interval1m, SymbolMetadata{
		AddedBy:         AddedByAdhoc,
		AutoProvisioned: true,
	})
	require.NoError(t, sd.RegisterSymbol(sym))

	require.NoError(t, sd.UpgradeSymbol("TSLA", AddedByStrategy))

	meta, err := sd.Metadata("TSLA")
	require.NoError(t, err)
	assert.True(t, meta.MeetsSessionConfigRequirements)
	assert.True(t, meta.UpgradedFromAdhoc)
	assert.Equal(t, AddedByStrategy, meta.AddedBy)
}
