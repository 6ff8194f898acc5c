package types

import (
	"context"
	"time"
)

// Subscription names one stream the live transport must deliver: a bar
// channel carries (symbol, interval) bars, a quote channel carries the
// symbol's quotes.
type Subscription struct {
	Channel  Channel
	Symbol   string
	Interval Interval // bar channel only
}

// StreamHandle is a live bar feed. Bars arrive on C in exchange time order
// per symbol and are pushed into the coordinator's per-(symbol, interval)
// queues.
type StreamHandle interface {
	C() <-chan SymbolBar
	Close() error
}

// DataSource loads and stores bars. The Parquet layout behind WriteBars and
// ReadBars is fixed by the storage strategy; the core only issues these
// semantic calls.
type DataSource interface {
	// LoadHistoricalBars reads bars for [startDate, endDate] inclusive, in
	// exchange-tz timestamp order.
	LoadHistoricalBars(ctx context.Context, symbol string, interval Interval, startDate, endDate time.Time) ([]Bar, error)

	// StreamBars opens a live feed for the subscribed channels. Live mode
	// only.
	StreamBars(ctx context.Context, subscriptions []Subscription) (StreamHandle, error)

	WriteBars(bars []Bar, interval Interval, symbol string) error

	ReadBars(interval Interval, symbol string, startDate, endDate time.Time) ([]Bar, error)

	// HasData reports whether any bars exist for the symbol and interval in
	// the given window. Used by provisioning validation.
	HasData(symbol string, interval Interval, startDate, endDate time.Time) bool
}
