package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yohannes916/mismartera/pkg/config"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/timeservice"
	"github.com/yohannes916/mismartera/pkg/types"
)

// memSource is an in-memory DataSource for coordinator and provisioning
// tests.
type memSource struct {
	bars map[string]map[types.Interval][]types.Bar
}

var _ types.DataSource = (*memSource)(nil)

func newMemSource() *memSource {
	return &memSource{bars: make(map[string]map[types.Interval][]types.Bar)}
}

func (m *memSource) add(symbol string, interval types.Interval, bars ...types.Bar) {
	if m.bars[symbol] == nil {
		m.bars[symbol] = make(map[types.Interval][]types.Bar)
	}
	m.bars[symbol][interval] = append(m.bars[symbol][interval], bars...)
}

func (m *memSource) inWindow(symbol string, interval types.Interval, startDate, endDate time.Time) []types.Bar {
	end := endDate.AddDate(0, 0, 1)
	var out []types.Bar
	for _, b := range m.bars[symbol][interval] {
		if b.Timestamp.Before(startDate) || !b.Timestamp.Before(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func (m *memSource) LoadHistoricalBars(_ context.Context, symbol string, interval types.Interval, startDate, endDate time.Time) ([]types.Bar, error) {
	return m.inWindow(symbol, interval, startDate, endDate), nil
}

func (m *memSource) ReadBars(interval types.Interval, symbol string, startDate, endDate time.Time) ([]types.Bar, error) {
	return m.inWindow(symbol, interval, startDate, endDate), nil
}

func (m *memSource) WriteBars(bars []types.Bar, interval types.Interval, symbol string) error {
	m.add(symbol, interval, bars...)
	return nil
}

func (m *memSource) HasData(symbol string, interval types.Interval, startDate, endDate time.Time) bool {
	return len(m.inWindow(symbol, interval, startDate, endDate)) > 0
}

func (m *memSource) StreamBars(_ context.Context, subs []types.Subscription) (types.StreamHandle, error) {
	c := make(chan types.SymbolBar, 64)
	for _, sub := range subs {
		if sub.Channel != types.BarChannel {
			continue
		}
		for _, b := range m.bars[sub.Symbol][sub.Interval] {
			c <- types.SymbolBar{Symbol: sub.Symbol, Interval: sub.Interval, Bar: b}
		}
	}
	close(c)
	return &memHandle{c: c}, nil
}

type memHandle struct{ c chan types.SymbolBar }

func (h *memHandle) C() <-chan types.SymbolBar { return h.c }
func (h *memHandle) Close() error              { return nil }

func nyLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func testConfig(symbols []string, streams []string) *config.Config {
	cfg := &config.Config{
		Mode:          config.ModeBacktest,
		ExchangeGroup: "US_EQUITY",
		Backtest: &config.BacktestConfig{
			StartDate: "2024-01-02",
			EndDate:   "2024-01-02",
		},
		SessionData: config.SessionDataConfig{
			Symbols: symbols,
			Streams: streams,
		},
	}
	cfg.Defaults()
	return cfg
}

// newTestCoordinator builds a coordinator over a virtual New York clock
// starting at the session open of 2024-01-02.
func newTestCoordinator(t *testing.T, cfg *config.Config, source types.DataSource) (*SessionCoordinator, *session.SessionData, *timeservice.Service) {
	t.Helper()

	coord, data, ts := newTestCoordinatorNoValidate(t, cfg, source)
	require.NoError(t, coord.ValidateStreams())
	return coord, data, ts
}

// newTestCoordinatorNoValidate leaves stream validation to the test, for
// configs that are expected to fail it.
func newTestCoordinatorNoValidate(t *testing.T, cfg *config.Config, source types.DataSource) (*SessionCoordinator, *session.SessionData, *timeservice.Service) {
	t.Helper()

	loc := nyLocation(t)
	open := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	ts := timeservice.NewVirtual(timeservice.USEquityConfig(loc), open)

	data := session.NewSessionData()
	data.SetSessionDate(time.Date(2024, 1, 2, 0, 0, 0, 0, loc))

	coord := NewSessionCoordinator(cfg, data, ts, source)
	return coord, data, ts
}

func minuteBar(t time.Time, open, high, low, close float64, volume int64) types.Bar {
	return types.Bar{Timestamp: t, Open: open, High: high, Low: low, Close: close, Volume: volume}
}

// scenarioABars are the three canonical one-minute bars used across the
// streaming tests.
func scenarioABars(loc *time.Location) []types.Bar {
	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, loc)
	return []types.Bar{
		minuteBar(t0, 100, 101, 99, 100.5, 1000),
		minuteBar(t0.Add(time.Minute), 100.5, 101, 100, 100.8, 800),
		minuteBar(t0.Add(2*time.Minute), 100.8, 101.2, 100.5, 101, 1200),
	}
}
