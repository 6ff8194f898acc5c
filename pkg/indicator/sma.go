package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Simple Moving Average
// Refer URL: https://www.investopedia.com/terms/s/sma.asp

//go:generate callbackgen -type SMA
type SMA struct {
	types.IntervalWindow
	Values    types.Float64Slice
	rawValues types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *SMA) Update(value float64) {
	inc.rawValues.Push(value)
	if len(inc.rawValues) > MaxNumOfSeries {
		inc.rawValues = inc.rawValues[MaxNumOfSeriesTruncateSize-1:]
	}

	if len(inc.rawValues) < inc.Window {
		return
	}

	inc.Values.Push(inc.rawValues.Tail(inc.Window).Mean())
	if len(inc.Values) > MaxNumOfSeries {
		inc.Values = inc.Values[MaxNumOfSeriesTruncateSize-1:]
	}
}

func (inc *SMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *SMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *SMA) Length() int {
	return len(inc.Values)
}

func (inc *SMA) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &SMA{}
