package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// SWING confirms swing highs or lows: a bar is a swing point when its
// high (resp. low) is the strict extreme of the 2*Window+1 bars centered on
// it. A swing point is only confirmed once Window later bars have arrived,
// so the value lags by Window bars.

//go:generate callbackgen -type SWING
type SWING struct {
	types.IntervalWindow

	// Low toggles lowest-low mode; the default confirms swing highs.
	Low bool

	Values types.Float64Slice

	highs types.Float64Slice
	lows  types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *SWING) Update(high, low float64) {
	inc.highs.Push(high)
	inc.lows.Push(low)

	if len(inc.highs) > MaxNumOfSeries {
		inc.highs = inc.highs[MaxNumOfSeriesTruncateSize-1:]
		inc.lows = inc.lows[MaxNumOfSeriesTruncateSize-1:]
	}

	span := 2*inc.Window + 1
	if len(inc.highs) < span {
		return
	}

	// candidate sits Window bars back from the end
	window := inc.highs.Tail(span)
	candidate := window[inc.Window]
	if inc.Low {
		window = inc.lows.Tail(span)
		candidate = window[inc.Window]
	}

	for i, v := range window {
		if i == inc.Window {
			continue
		}
		if !inc.Low && v >= candidate {
			return
		}
		if inc.Low && v <= candidate {
			return
		}
	}

	inc.Values.Push(candidate)
}

func (inc *SWING) Last() float64 {
	return inc.Values.Last()
}

func (inc *SWING) Length() int {
	return len(inc.Values)
}

func (inc *SWING) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.High, bar.Low)
	inc.EndTime = bar.Timestamp
	if inc.Length() > 0 {
		inc.EmitUpdate(inc.Last())
	}
}

var _ Indicator = &SWING{}
