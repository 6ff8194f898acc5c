package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yohannes916/mismartera/pkg/types"
)

func barsFromCloses(closes []float64) []types.Bar {
	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]types.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, types.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    100,
		})
	}
	return bars
}

func TestSMA(t *testing.T) {
	sma := &SMA{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m, Window: 3}}

	for _, b := range barsFromCloses([]float64{1, 2, 3, 4, 5}) {
		sma.PushBar(b)
	}

	assert.Equal(t, 3, sma.Length())
	assert.InDelta(t, 4.0, sma.Last(), 1e-9)
	assert.InDelta(t, 3.0, sma.Index(1), 1e-9)
}

func TestSMAIgnoresStaleBars(t *testing.T) {
	sma := &SMA{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m, Window: 2}}

	bars := barsFromCloses([]float64{1, 2})
	for _, b := range bars {
		sma.PushBar(b)
	}
	// replaying an already-seen bar must not move the value
	sma.PushBar(bars[1])

	assert.Equal(t, 1, sma.Length())
	assert.InDelta(t, 1.5, sma.Last(), 1e-9)
}

func TestEWMA(t *testing.T) {
	ewma := &EWMA{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m, Window: 3}}

	for _, b := range barsFromCloses([]float64{10, 11, 12}) {
		ewma.PushBar(b)
	}

	// multiplier 0.5: 10 -> 10.5 -> 11.25
	assert.InDelta(t, 11.25, ewma.Last(), 1e-9)
}

func TestRSIAllGains(t *testing.T) {
	rsi := &RSI{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m, Window: 3}}

	for _, b := range barsFromCloses([]float64{1, 2, 3, 4, 5}) {
		rsi.PushBar(b)
	}

	assert.Greater(t, rsi.Length(), 0)
	assert.InDelta(t, 100.0, rsi.Last(), 1e-9)
}

func TestVWAP(t *testing.T) {
	vwap := &VWAP{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m}}

	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	vwap.PushBar(types.Bar{Timestamp: start, High: 10, Low: 10, Close: 10, Volume: 100})
	vwap.PushBar(types.Bar{Timestamp: start.Add(time.Minute), High: 20, Low: 20, Close: 20, Volume: 300})

	// (10*100 + 20*300) / 400
	assert.InDelta(t, 17.5, vwap.Last(), 1e-9)

	vwap.ResetSession()
	assert.Equal(t, 0, vwap.Length())
}

func TestOBV(t *testing.T) {
	obv := &OBV{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m}}

	for _, b := range barsFromCloses([]float64{10, 11, 9, 9}) {
		obv.PushBar(b)
	}

	// seed 100, +100 on up, -100 on down, flat keeps value
	assert.InDelta(t, 100.0, obv.Last(), 1e-9)
}

func TestHighLow(t *testing.T) {
	hl := &HIGHLOW{IntervalWindow: types.IntervalWindow{Interval: types.Interval1w, Window: 3}}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	highs := []float64{10, 12, 11, 15}
	lows := []float64{8, 9, 7, 10}
	for i := range highs {
		hl.PushBar(types.Bar{
			Timestamp: start.AddDate(0, 0, 7*i),
			High:      highs[i],
			Low:       lows[i],
			Close:     highs[i],
		})
	}

	assert.InDelta(t, 15.0, hl.Last(), 1e-9)
	assert.InDelta(t, 7.0, hl.LastLow(), 1e-9)
}

func TestSwingHigh(t *testing.T) {
	swing := &SWING{IntervalWindow: types.IntervalWindow{Interval: types.Interval1m, Window: 1}}

	start := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	highs := []float64{10, 12, 11}
	for i, h := range highs {
		swing.PushBar(types.Bar{Timestamp: start.Add(time.Duration(i) * time.Minute), High: h, Low: h - 1, Close: h})
	}

	// 12 is a strict maximum of its 3-bar window
	assert.Equal(t, 1, swing.Length())
	assert.InDelta(t, 12.0, swing.Last(), 1e-9)
}
