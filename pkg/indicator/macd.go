package indicator

import (
	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Moving Average Convergence Divergence
// Refer URL: https://www.investopedia.com/terms/m/macd.asp

const DefaultMACDFast = 12
const DefaultMACDSlow = 26
const DefaultMACDSignal = 9

//go:generate callbackgen -type MACD
type MACD struct {
	types.IntervalWindow

	FastWindow   int
	SlowWindow   int
	SignalWindow int

	Values    types.Float64Slice // MACD line
	Signal    types.Float64Slice
	Histogram types.Float64Slice

	fast   *EWMA
	slow   *EWMA
	signal *EWMA

	UpdateCallbacks []func(macd, signal, histogram float64)
}

func (inc *MACD) Update(value float64) {
	if inc.fast == nil {
		if inc.FastWindow == 0 {
			inc.FastWindow = DefaultMACDFast
		}
		if inc.SlowWindow == 0 {
			inc.SlowWindow = DefaultMACDSlow
		}
		if inc.SignalWindow == 0 {
			inc.SignalWindow = DefaultMACDSignal
		}

		inc.fast = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.FastWindow}}
		inc.slow = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.SlowWindow}}
		inc.signal = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.SignalWindow}}
	}

	inc.fast.Update(value)
	inc.slow.Update(value)

	macd := inc.fast.Last() - inc.slow.Last()
	inc.signal.Update(macd)

	inc.Values.Push(macd)
	inc.Signal.Push(inc.signal.Last())
	inc.Histogram.Push(macd - inc.signal.Last())

	if len(inc.Values) > MaxNumOfEWMA {
		inc.Values = inc.Values[MaxNumOfEWMATruncateSize-1:]
		inc.Signal = inc.Signal[MaxNumOfEWMATruncateSize-1:]
		inc.Histogram = inc.Histogram[MaxNumOfEWMATruncateSize-1:]
	}
}

func (inc *MACD) Last() float64 {
	return inc.Values.Last()
}

func (inc *MACD) LastSignal() float64 {
	return inc.Signal.Last()
}

func (inc *MACD) LastHistogram() float64 {
	return inc.Histogram.Last()
}

func (inc *MACD) Length() int {
	return len(inc.Values)
}

func (inc *MACD) PushBar(bar types.Bar) {
	inc.Update(bar.Close)
	inc.EmitUpdate(inc.Last(), inc.LastSignal(), inc.LastHistogram())
}

var _ Indicator = &MACD{}
