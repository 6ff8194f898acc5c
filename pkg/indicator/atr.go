package indicator

import (
	"math"
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Average True Range
// Refer URL: https://www.investopedia.com/terms/a/atr.asp

//go:generate callbackgen -type ATR
type ATR struct {
	types.IntervalWindow
	PercentageVolatility types.Float64Slice

	PreviousClose float64
	RMA           *RMA

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *ATR) Update(high, low, cloze float64) {
	if inc.Window <= 0 {
		panic("window must be greater than 0")
	}

	if inc.RMA == nil {
		inc.RMA = &RMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
		inc.PreviousClose = cloze
		return
	}

	// calculate true range
	trueRange := high - low
	hc := math.Abs(high - inc.PreviousClose)
	lc := math.Abs(low - inc.PreviousClose)
	if trueRange < hc {
		trueRange = hc
	}
	if trueRange < lc {
		trueRange = lc
	}

	inc.PreviousClose = cloze

	// apply rolling moving average
	inc.RMA.Update(trueRange)
	atr := inc.RMA.Last()
	inc.PercentageVolatility.Push(atr / cloze)
}

func (inc *ATR) Last() float64 {
	if inc.RMA == nil {
		return 0
	}
	return inc.RMA.Last()
}

func (inc *ATR) Index(i int) float64 {
	if inc.RMA == nil {
		return 0
	}
	return inc.RMA.Index(i)
}

func (inc *ATR) Length() int {
	if inc.RMA == nil {
		return 0
	}
	return inc.RMA.Length()
}

func (inc *ATR) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.High, bar.Low, bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &ATR{}
