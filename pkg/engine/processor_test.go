package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/timeservice"
	"github.com/yohannes916/mismartera/pkg/types"
)

func newProcessorFixture(t *testing.T) (*DataProcessor, *session.SessionData, *time.Location) {
	t.Helper()

	loc := nyLocation(t)
	open := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	ts := timeservice.NewVirtual(timeservice.USEquityConfig(loc), open)

	data := session.NewSessionData()
	data.SetSessionDate(time.Date(2024, 1, 2, 0, 0, 0, 0, loc))

	sym := session.NewSymbolSessionData("AAPL", types.Interval1m, session.SymbolMetadata{
		MeetsSessionConfigRequirements: true,
		AddedBy:                        session.AddedByConfig,
	})
	sym.AddInterval(types.Interval5m)
	require.NoError(t, data.RegisterSymbol(sym))

	return NewDataProcessor(data, ts), data, loc
}

// Scenario: three one-minute bars inside one five-minute period. No derived
// bar may appear until the period completes; session close flushes it.
func TestProcessorIncompletePeriodThenFlush(t *testing.T) {
	proc, data, loc := newProcessorFixture(t)

	for _, b := range scenarioABars(loc) {
		require.NoError(t, data.AppendBar("AAPL", types.Interval1m, b))
	}

	proc.Process()
	derived, err := data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)
	assert.Empty(t, derived, "period incomplete, no partial bar may leak")

	// base updated flag consumed after the scan
	assert.False(t, data.IsUpdated("AAPL", types.Interval1m))

	proc.Flush()
	derived, err = data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)
	require.Len(t, derived, 1)

	bar := derived[0]
	assert.True(t, bar.Timestamp.Equal(time.Date(2024, 1, 2, 9, 30, 0, 0, loc)))
	assert.InDelta(t, 100.0, bar.Open, 1e-9)
	assert.InDelta(t, 101.2, bar.High, 1e-9)
	assert.InDelta(t, 99.0, bar.Low, 1e-9)
	assert.InDelta(t, 101.0, bar.Close, 1e-9)
	assert.Equal(t, int64(3000), bar.Volume)
}

// The first bar of the next period completes the previous one.
func TestProcessorEmitsOnPeriodBoundary(t *testing.T) {
	proc, data, loc := newProcessorFixture(t)

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	for i := 0; i < 6; i++ {
		require.NoError(t, data.AppendBar("AAPL", types.Interval1m,
			minuteBar(t0.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 100)))
	}

	proc.Process()

	derived, err := data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.True(t, derived[0].Timestamp.Equal(t0))
	assert.Equal(t, int64(500), derived[0].Volume)

	// the 09:35 bar stays pending until its own period completes
	proc.Flush()
	derived, err = data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)
	require.Len(t, derived, 2)
	assert.Equal(t, int64(100), derived[1].Volume)
}

// No derived bar's timestamp may be later than the last base bar that
// contributed to it, and every emitted period is fully covered.
func TestProcessorDerivedTimestampInvariant(t *testing.T) {
	proc, data, loc := newProcessorFixture(t)

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	for i := 0; i < 11; i++ {
		require.NoError(t, data.AppendBar("AAPL", types.Interval1m,
			minuteBar(t0.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 1)))
	}
	proc.Process()
	proc.Flush()

	base, err := data.GetBarsRef("AAPL", types.Interval1m, true)
	require.NoError(t, err)
	derived, err := data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)

	require.Len(t, derived, 3)
	for _, d := range derived {
		assert.False(t, d.Timestamp.After(base[len(base)-1].Timestamp))
	}
}

func TestProcessorUpdatesIndicators(t *testing.T) {
	proc, data, loc := newProcessorFixture(t)

	cfg := indicator.Config{Name: "sma", Period: 2, Interval: types.Interval1m}
	state, err := indicator.New(cfg)
	require.NoError(t, err)
	require.NoError(t, data.SetIndicator("AAPL", cfg.Key(), &session.IndicatorData{
		Config: cfg, State: state, Warmup: 2,
	}))

	for _, b := range scenarioABars(loc) {
		require.NoError(t, data.AppendBar("AAPL", types.Interval1m, b))
	}
	proc.Process()

	ind, err := data.Indicator("AAPL", cfg.Key())
	require.NoError(t, err)
	assert.True(t, ind.Valid)
	assert.InDelta(t, (100.8+101)/2, ind.CurrentValue, 1e-9)
	assert.True(t, ind.LastUpdated.Equal(scenarioABars(loc)[2].Timestamp))
}

func TestBucketStart(t *testing.T) {
	loc := nyLocation(t)

	fiveM := bucketStart(time.Date(2024, 1, 2, 9, 33, 0, 0, loc), types.Interval5m, loc)
	assert.True(t, fiveM.Equal(time.Date(2024, 1, 2, 9, 30, 0, 0, loc)))

	day := bucketStart(time.Date(2024, 1, 2, 15, 59, 0, 0, loc), types.Interval1d, loc)
	assert.True(t, day.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, loc)))

	// 2024-01-03 is a Wednesday; its ISO week starts Monday 2024-01-01
	week := bucketStart(time.Date(2024, 1, 3, 10, 0, 0, 0, loc), types.Interval1w, loc)
	assert.True(t, week.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, loc)))

	// sunday belongs to the week that started the previous monday
	sunday := bucketStart(time.Date(2024, 1, 7, 0, 0, 0, 0, loc), types.Interval1w, loc)
	assert.True(t, sunday.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, loc)))
}
