package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/timeservice"
	"github.com/yohannes916/mismartera/pkg/types"
)

func newQualityFixture(t *testing.T) (*QualityManager, *session.SessionData, *timeservice.Service, *time.Location) {
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

	return NewQualityManager(data, ts), data, ts, loc
}

func TestQualityFullCoverage(t *testing.T) {
	qm, data, ts, loc := newQualityFixture(t)

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	for i := 0; i < 3; i++ {
		require.NoError(t, data.AppendBar("AAPL", types.Interval1m,
			minuteBar(t0.Add(time.Duration(i)*time.Minute), 100, 101, 99, 100, 100)))
		qm.Notify("AAPL", types.Interval1m)
	}
	ts.SetVirtualTime(t0.Add(2 * time.Minute))

	qm.ProcessPending()

	quality, err := data.Quality("AAPL", types.Interval1m)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, quality, 1e-9)

	gaps, err := data.Gaps("AAPL", types.Interval1m)
	require.NoError(t, err)
	assert.Empty(t, gaps)
}

func TestQualityWithGap(t *testing.T) {
	qm, data, ts, loc := newQualityFixture(t)

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	require.NoError(t, data.AppendBar("AAPL", types.Interval1m, minuteBar(t0, 100, 101, 99, 100, 100)))
	// 09:31 and 09:32 missing
	require.NoError(t, data.AppendBar("AAPL", types.Interval1m, minuteBar(t0.Add(3*time.Minute), 100, 101, 99, 100, 100)))
	ts.SetVirtualTime(t0.Add(3 * time.Minute))

	qm.Notify("AAPL", types.Interval1m)
	qm.ProcessPending()

	quality, err := data.Quality("AAPL", types.Interval1m)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, quality, 1e-9) // 2 of 4 expected

	gaps, err := data.Gaps("AAPL", types.Interval1m)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.True(t, gaps[0].StartTime.Equal(t0.Add(time.Minute)))
	assert.True(t, gaps[0].EndTime.Equal(t0.Add(2*time.Minute)))
	assert.Equal(t, 2, gaps[0].MissingCount)
}

// Derived intervals inherit the base quality.
func TestQualityPropagatesToDerived(t *testing.T) {
	qm, data, ts, loc := newQualityFixture(t)

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	require.NoError(t, data.AppendBar("AAPL", types.Interval1m, minuteBar(t0, 100, 101, 99, 100, 100)))
	ts.SetVirtualTime(t0)

	qm.Notify("AAPL", types.Interval1m)
	qm.ProcessPending()

	base, err := data.Quality("AAPL", types.Interval1m)
	require.NoError(t, err)
	derived, err := data.Quality("AAPL", types.Interval5m)
	require.NoError(t, err)
	assert.Equal(t, base, derived)
	assert.InDelta(t, 100.0, derived, 1e-9)
}

// Notifications only fire for base intervals.
func TestQualityNotifyIgnoresDerivedIntervals(t *testing.T) {
	qm, _, _, _ := newQualityFixture(t)

	qm.Notify("AAPL", types.Interval5m)

	select {
	case <-qm.notifications:
		t.Fatal("derived interval must not notify")
	default:
	}
}

func TestQualityDailyTradingDays(t *testing.T) {
	loc := nyLocation(t)
	ts := timeservice.NewVirtual(timeservice.USEquityConfig(loc), time.Date(2024, 1, 8, 16, 0, 0, 0, loc))

	data := session.NewSessionData()
	data.SetSessionDate(time.Date(2024, 1, 8, 0, 0, 0, 0, loc))
	sym := session.NewSymbolSessionData("AAPL", types.Interval1d, session.SymbolMetadata{})
	require.NoError(t, data.RegisterSymbol(sym))

	qm := NewQualityManager(data, ts)

	// Jan 2..Jan 8 has 5 trading days; Jan 4 and 5 are missing
	for _, day := range []int{2, 3, 8} {
		require.NoError(t, data.AppendBar("AAPL", types.Interval1d,
			minuteBar(time.Date(2024, 1, day, 0, 0, 0, 0, loc), 100, 101, 99, 100, 100)))
	}

	bars, err := data.GetBarsRef("AAPL", types.Interval1d, true)
	require.NoError(t, err)

	quality, gaps := qm.Score(bars, types.Interval1d)
	assert.InDelta(t, 60.0, quality, 1e-9) // 3 of 5 trading days

	require.Len(t, gaps, 1)
	assert.Equal(t, 2, gaps[0].MissingCount)
	assert.Equal(t, 4, gaps[0].StartTime.Day())
}

func TestHistoricalQuality(t *testing.T) {
	qm, data, _, loc := newQualityFixture(t)

	// 2 of the 4 trading days Jan 8..Jan 11 present
	bars := []types.Bar{
		minuteBar(time.Date(2024, 1, 8, 9, 30, 0, 0, loc), 100, 101, 99, 100, 100),
		minuteBar(time.Date(2024, 1, 9, 9, 30, 0, 0, loc), 100, 101, 99, 100, 100),
	}
	require.NoError(t, data.AddHistoricalBars("AAPL", types.Interval1m, bars))

	q := qm.HistoricalQuality("AAPL", types.Interval1m,
		time.Date(2024, 1, 8, 0, 0, 0, 0, loc),
		time.Date(2024, 1, 11, 0, 0, 0, 0, loc))
	assert.InDelta(t, 50.0, q, 1e-9)
}
