package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Volume Weighted Average Price
// Refer URL: https://www.investopedia.com/terms/v/vwap.asp
// Accumulates over the session; ResetSession clears the running sums. A
// session roll starts from a fresh VWAP state rather than calling
// ResetSession.

//go:generate callbackgen -type VWAP
type VWAP struct {
	types.IntervalWindow
	Values types.Float64Slice

	priceVolumeSum float64
	volumeSum      float64

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *VWAP) Update(price, volume float64) {
	inc.priceVolumeSum += price * volume
	inc.volumeSum += volume

	if inc.volumeSum == 0 {
		return
	}

	inc.Values.Push(inc.priceVolumeSum / inc.volumeSum)
	if len(inc.Values) > MaxNumOfSeries {
		inc.Values = inc.Values[MaxNumOfSeriesTruncateSize-1:]
	}
}

func (inc *VWAP) ResetSession() {
	inc.priceVolumeSum = 0
	inc.volumeSum = 0
	inc.Values = nil
}

func (inc *VWAP) Last() float64 {
	return inc.Values.Last()
}

func (inc *VWAP) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *VWAP) Length() int {
	return len(inc.Values)
}

func (inc *VWAP) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	typical := (bar.High + bar.Low + bar.Close) / 3.0
	inc.Update(typical, float64(bar.Volume))
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &VWAP{}
