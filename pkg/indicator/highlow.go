package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// HIGHLOW tracks the highest high and lowest low over the window, e.g. the
// 52-week high/low when fed weekly bars with Window=52.

//go:generate callbackgen -type HIGHLOW
type HIGHLOW struct {
	types.IntervalWindow

	Highs types.Float64Slice
	Lows  types.Float64Slice

	highValues types.Float64Slice
	lowValues  types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(high, low float64)
}

func (inc *HIGHLOW) Update(high, low float64) {
	inc.highValues.Push(high)
	inc.lowValues.Push(low)

	if len(inc.highValues) > MaxNumOfSeries {
		inc.highValues = inc.highValues[MaxNumOfSeriesTruncateSize-1:]
		inc.lowValues = inc.lowValues[MaxNumOfSeriesTruncateSize-1:]
	}

	if len(inc.highValues) < inc.Window {
		return
	}

	inc.Highs.Push(inc.highValues.Tail(inc.Window).Max())
	inc.Lows.Push(inc.lowValues.Tail(inc.Window).Min())
}

// Last returns the rolling highest high. LastLow returns the counterpart.
func (inc *HIGHLOW) Last() float64 {
	return inc.Highs.Last()
}

func (inc *HIGHLOW) LastLow() float64 {
	return inc.Lows.Last()
}

func (inc *HIGHLOW) Length() int {
	return len(inc.Highs)
}

func (inc *HIGHLOW) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.High, bar.Low)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last(), inc.LastLow())
}

var _ Indicator = &HIGHLOW{}
