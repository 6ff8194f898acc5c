package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Weighted Moving Average
// Refer URL: https://www.investopedia.com/articles/technical/060401.asp

//go:generate callbackgen -type WMA
type WMA struct {
	types.IntervalWindow
	Values    types.Float64Slice
	rawValues types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *WMA) Update(value float64) {
	inc.rawValues.Push(value)
	if len(inc.rawValues) > MaxNumOfSeries {
		inc.rawValues = inc.rawValues[MaxNumOfSeriesTruncateSize-1:]
	}

	if len(inc.rawValues) < inc.Window {
		return
	}

	var sum, denom float64
	tail := inc.rawValues.Tail(inc.Window)
	for i, v := range tail {
		w := float64(i + 1)
		sum += v * w
		denom += w
	}

	inc.Values.Push(sum / denom)
	if len(inc.Values) > MaxNumOfSeries {
		inc.Values = inc.Values[MaxNumOfSeriesTruncateSize-1:]
	}
}

func (inc *WMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *WMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *WMA) Length() int {
	return len(inc.Values)
}

func (inc *WMA) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &WMA{}
