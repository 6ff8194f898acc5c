package indicator

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Bollinger Bands
// Refer URL: https://www.investopedia.com/terms/b/bollingerbands.asp

//go:generate callbackgen -type BOLL
type BOLL struct {
	types.IntervalWindow

	// K is the band width in standard deviations, typically 2.0
	K float64

	SMA       types.Float64Slice
	UpBand    types.Float64Slice
	DownBand  types.Float64Slice
	rawValues types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(sma, upBand, downBand float64)
}

func (inc *BOLL) Update(value float64) {
	if inc.K == 0 {
		inc.K = 2.0
	}

	inc.rawValues.Push(value)
	if len(inc.rawValues) > MaxNumOfSeries {
		inc.rawValues = inc.rawValues[MaxNumOfSeriesTruncateSize-1:]
	}

	if len(inc.rawValues) < inc.Window {
		return
	}

	tail := inc.rawValues.Tail(inc.Window)
	mean := tail.Mean()
	std := stat.StdDev(tail, nil)

	inc.SMA.Push(mean)
	inc.UpBand.Push(mean + inc.K*std)
	inc.DownBand.Push(mean - inc.K*std)
}

func (inc *BOLL) Last() float64 {
	return inc.SMA.Last()
}

func (inc *BOLL) LastUpBand() float64 {
	return inc.UpBand.Last()
}

func (inc *BOLL) LastDownBand() float64 {
	return inc.DownBand.Last()
}

func (inc *BOLL) Length() int {
	return len(inc.SMA)
}

func (inc *BOLL) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last(), inc.LastUpBand(), inc.LastDownBand())
}

var _ Indicator = &BOLL{}
