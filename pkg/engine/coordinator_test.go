package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yohannes916/mismartera/pkg/config"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/timeservice"
	"github.com/yohannes916/mismartera/pkg/types"
)

// Scenario A: a single symbol streaming three one-minute bars.
func TestStreamingLoopSingleSymbol(t *testing.T) {
	loc := nyLocation(t)
	source := newMemSource()
	source.add("AAPL", types.Interval1m, scenarioABars(loc)...)

	cfg := testConfig([]string{"AAPL"}, []string{"1m", "5m"})
	coord, data, ts := newTestCoordinator(t, cfg, source)

	ctx := context.Background()
	require.NoError(t, coord.provisionConfigSymbols(ctx))
	data.ActivateSession()

	coord.streamingLoop(ctx)

	base, err := data.GetBarsRef("AAPL", types.Interval1m, true)
	require.NoError(t, err)
	require.Len(t, base, 3)

	// virtual clock followed the last bar
	assert.True(t, ts.Now().Equal(scenarioABars(loc)[2].Timestamp))

	// derived period incomplete mid-session
	coord.Processor.Process()
	derived, err := data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)
	assert.Empty(t, derived)

	// quality from the three appends
	coord.Quality.ProcessPending()
	quality, err := data.Quality("AAPL", types.Interval1m)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, quality, 1e-9)

	// session close flushes the five-minute bar
	coord.Processor.Flush()
	derived, err = data.GetBarsRef("AAPL", types.Interval5m, true)
	require.NoError(t, err)
	require.Len(t, derived, 1)
	assert.InDelta(t, 100.0, derived[0].Open, 1e-9)
	assert.InDelta(t, 101.2, derived[0].High, 1e-9)
	assert.InDelta(t, 99.0, derived[0].Low, 1e-9)
	assert.InDelta(t, 101.0, derived[0].Close, 1e-9)
	assert.Equal(t, int64(3000), derived[0].Volume)
}

// Property: a loop over empty queues completes immediately without error.
func TestStreamingLoopEmptyQueues(t *testing.T) {
	cfg := testConfig([]string{"AAPL"}, []string{"1m"})
	coord, _, _ := newTestCoordinator(t, cfg, newMemSource())

	done := make(chan struct{})
	go func() {
		coord.streamingLoop(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("streaming loop did not exit on empty queues")
	}
}

// Scenario B: one symbol of the batch has no data; the others survive.
func TestProvisioningFailureDropsSymbol(t *testing.T) {
	loc := nyLocation(t)
	source := newMemSource()
	histDay := time.Date(2023, 12, 29, 9, 30, 0, 0, loc)
	for _, symbol := range []string{"AAPL", "MSFT"} {
		source.add(symbol, types.Interval1m, minuteBar(histDay, 100, 101, 99, 100, 100))
		source.add(symbol, types.Interval1m, scenarioABars(loc)...)
	}

	cfg := testConfig([]string{"AAPL", "INVALID", "MSFT"}, []string{"1m"})
	cfg.SessionData.Historical = &config.HistoricalConfig{Enabled: true, TrailingDays: 5, Intervals: []string{"1m"}}
	coord, data, _ := newTestCoordinator(t, cfg, source)

	var failed []string
	var reasons []string
	coord.OnSymbolFailed(func(symbol, reason string) {
		failed = append(failed, symbol)
		reasons = append(reasons, reason)
	})

	require.NoError(t, coord.provisionConfigSymbols(context.Background()))

	assert.Equal(t, []string{"AAPL", "MSFT"}, data.ActiveSymbols())
	assert.Equal(t, []string{"INVALID"}, failed)
	assert.Equal(t, []string{"no_historical_data"}, reasons)
}

// Every symbol failing fails the batch.
func TestProvisioningAllSymbolsFailed(t *testing.T) {
	cfg := testConfig([]string{"GHOST1", "GHOST2"}, []string{"1m"})
	coord, _, _ := newTestCoordinator(t, cfg, newMemSource())

	err := coord.provisionConfigSymbols(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrAllSymbolsFailed)
}

// Scenario D: a freshly added symbol far behind the clock deactivates the
// session on its first bar and reactivates once it catches up.
func TestLagGating(t *testing.T) {
	loc := nyLocation(t)
	noon := time.Date(2024, 1, 2, 12, 0, 0, 0, loc)

	source := newMemSource()
	cfg := testConfig([]string{"AAPL", "TSLA"}, []string{"1m"})
	coord, data, ts := newTestCoordinator(t, cfg, source)

	for _, symbol := range []string{"AAPL", "TSLA"} {
		require.NoError(t, data.RegisterSymbol(session.NewSymbolSessionData(symbol, types.Interval1m, session.SymbolMetadata{
			MeetsSessionConfigRequirements: true,
			AddedBy:                        session.AddedByConfig,
		})))
	}

	// TSLA: first bar at 09:30 (9000s behind), nine fillers, then a bar
	// within the threshold; its 11th bar lands on the counter-10 check
	old := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	for i := 0; i < 10; i++ {
		coord.queues.push("TSLA", types.Interval1m, minuteBar(old.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 100))
	}
	coord.queues.push("TSLA", types.Interval1m, minuteBar(noon.Add(-30*time.Second), 100, 101, 99, 100, 100))
	coord.queues.push("AAPL", types.Interval1m, minuteBar(noon, 100, 101, 99, 100, 100))

	ts.SetVirtualTime(noon)
	data.ActivateSession()

	var deactivated, reactivated bool
	var laggedSymbol string
	coord.OnSessionDeactivated(func() { deactivated = true })
	coord.OnSessionActivated(func() { reactivated = true })
	coord.OnLagDetected(func(symbol string, lag time.Duration) { laggedSymbol = symbol })

	// first iteration drains TSLA's oldest bar and trips the counter-0 check
	coord.processPendingSymbols(context.Background())
	head, ok := coord.queues.earliestHead()
	require.True(t, ok)
	processed := coord.processBarsAt(head)
	coord.checkLag(processed)

	assert.True(t, deactivated)
	assert.Equal(t, "TSLA", laggedSymbol)
	assert.False(t, data.SessionActive())

	// external reads are empty while deactivated, internal ones are not
	external, err := data.GetBarsRef("TSLA", types.Interval1m, false)
	require.NoError(t, err)
	assert.Empty(t, external)
	internal, err := data.GetBarsRef("TSLA", types.Interval1m, true)
	require.NoError(t, err)
	assert.Len(t, internal, 1)

	coord.streamingLoop(context.Background())

	assert.True(t, reactivated)
	assert.True(t, data.SessionActive())
}

// The lag check fires on bars 1, 11, 21, ... of each symbol independently.
func TestLagCheckCadence(t *testing.T) {
	loc := nyLocation(t)
	cfg := testConfig([]string{"AAPL"}, []string{"1m"})
	coord, data, ts := newTestCoordinator(t, cfg, newMemSource())

	require.NoError(t, data.RegisterSymbol(session.NewSymbolSessionData("AAPL", types.Interval1m, session.SymbolMetadata{})))

	var checks int
	coord.OnLagDetected(func(string, time.Duration) { checks++ })

	// every bar is an hour behind the pinned clock
	ts.SetVirtualTime(time.Date(2024, 1, 2, 15, 0, 0, 0, loc))
	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	for i := 0; i < 21; i++ {
		bar := minuteBar(t0.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 100)
		require.NoError(t, data.AppendBar("AAPL", types.Interval1m, bar))
		coord.checkLag([]types.SymbolBar{{Symbol: "AAPL", Interval: types.Interval1m, Bar: bar}})
	}

	// bars 1, 11 and 21
	assert.Equal(t, 3, checks)
}

// Scenario E: nothing survives the session boundary.
func TestMultiDayNoPersistence(t *testing.T) {
	loc := nyLocation(t)
	source := newMemSource()
	source.add("AAPL", types.Interval1m, scenarioABars(loc)...)
	day2bar := minuteBar(time.Date(2024, 1, 3, 9, 30, 0, 0, loc), 100, 101, 99, 100, 100)
	source.add("AAPL", types.Interval1m, day2bar)

	cfg := testConfig([]string{"AAPL"}, []string{"1m"})
	cfg.Backtest.EndDate = "2024-01-03"
	coord, data, _ := newTestCoordinator(t, cfg, source)

	ctx := context.Background()
	day1 := time.Date(2024, 1, 2, 0, 0, 0, 0, loc)
	require.NoError(t, coord.runDay(ctx, day1))

	// a strategy adds TSLA mid-flight on day 1
	require.NoError(t, data.RegisterSymbol(session.NewSymbolSessionData("TSLA", types.Interval1m, session.SymbolMetadata{
		AddedBy: session.AddedByStrategy,
	})))
	require.True(t, data.HasSymbol("TSLA"))

	day2 := time.Date(2024, 1, 3, 0, 0, 0, 0, loc)
	require.NoError(t, coord.runDay(ctx, day2))

	// day 2 starts from the config alone
	assert.Equal(t, []string{"AAPL"}, data.ActiveSymbols())
	assert.False(t, data.HasSymbol("TSLA"))
}

// Phase 0 rejects hourly streams before anything runs (scenario F).
func TestValidateStreamsRejectsHourly(t *testing.T) {
	cfg := testConfig([]string{"AAPL"}, []string{"1h"})
	loc := nyLocation(t)
	ts := timeservice.NewVirtual(timeservice.USEquityConfig(loc), time.Date(2024, 1, 2, 9, 30, 0, 0, loc))

	data := session.NewSessionData()
	coordErr := NewSessionCoordinator(cfg, data, ts, newMemSource()).ValidateStreams()

	require.Error(t, coordErr)
	assert.ErrorIs(t, coordErr, types.ErrInvalidInterval)
	assert.Contains(t, coordErr.Error(), "use minute intervals (60m, 120m, ...)")
}

func TestRemoveSymbolClearsEverything(t *testing.T) {
	loc := nyLocation(t)
	source := newMemSource()
	source.add("AAPL", types.Interval1m, scenarioABars(loc)...)

	cfg := testConfig([]string{"AAPL"}, []string{"1m"})
	coord, data, _ := newTestCoordinator(t, cfg, source)

	require.NoError(t, coord.provisionConfigSymbols(context.Background()))
	require.True(t, data.HasSymbol("AAPL"))

	require.NoError(t, coord.RemoveSymbol("AAPL"))
	assert.Empty(t, data.ActiveSymbols())

	_, ok := coord.queues.earliestHead()
	assert.False(t, ok)
}

func TestDuplicateAddSymbol(t *testing.T) {
	loc := nyLocation(t)
	source := newMemSource()
	source.add("AAPL", types.Interval1m, scenarioABars(loc)...)

	cfg := testConfig([]string{"AAPL"}, []string{"1m"})
	coord, _, _ := newTestCoordinator(t, cfg, source)
	require.NoError(t, coord.provisionConfigSymbols(context.Background()))

	err := coord.AddSymbol("AAPL", session.AddedByStrategy)
	assert.ErrorIs(t, err, types.ErrDuplicateSymbol)
}

func TestPendingSymbolCancel(t *testing.T) {
	cfg := testConfig([]string{"AAPL"}, []string{"1m"})
	coord, _, _ := newTestCoordinator(t, cfg, newMemSource())

	require.NoError(t, coord.AddSymbol("TSLA", session.AddedByScanner))
	// queueing again is idempotent
	require.NoError(t, coord.AddSymbol("TSLA", session.AddedByScanner))

	assert.True(t, coord.CancelPendingSymbol("TSLA"))
	assert.False(t, coord.CancelPendingSymbol("TSLA"))
}
