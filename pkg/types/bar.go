package types

import (
	"fmt"
	"time"
)

// Bar is one OHLCV bar of one symbol at one interval. Timestamps are
// timezone-aware in the exchange timezone; they are never converted to UTC
// on the way to or from storage.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

func (b Bar) String() string {
	return fmt.Sprintf("%s O:%.4f H:%.4f L:%.4f C:%.4f V:%d",
		b.Timestamp.Format("2006-01-02 15:04:05"), b.Open, b.High, b.Low, b.Close, b.Volume)
}

// SymbolBar tags a bar with its origin, used on stream transports and
// notification queues.
type SymbolBar struct {
	Symbol   string
	Interval Interval
	Bar      Bar
}

// BarSlice attaches aggregation helpers to an ordered bar sequence.
type BarSlice []Bar

func (s BarSlice) Last() Bar {
	if len(s) == 0 {
		return Bar{}
	}
	return s[len(s)-1]
}

// Aggregate folds the slice into a single bar: open of the first, close of
// the last, max high, min low, summed volume. The timestamp is the first
// bar's timestamp. Returns false on an empty slice.
func (s BarSlice) Aggregate() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}

	out := Bar{
		Timestamp: s[0].Timestamp,
		Open:      s[0].Open,
		High:      s[0].High,
		Low:       s[0].Low,
		Close:     s[len(s)-1].Close,
	}
	for _, b := range s {
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Volume += b.Volume
	}

	return out, true
}

// Quote is a bid/ask snapshot. Quotes share the daily-file storage layout
// with sub-daily bars but are otherwise outside the bar pipeline.
type Quote struct {
	Timestamp time.Time `json:"timestamp"`
	BidPrice  float64   `json:"bid_price"`
	BidSize   int64     `json:"bid_size"`
	AskPrice  float64   `json:"ask_price"`
	AskSize   int64     `json:"ask_size"`
}
