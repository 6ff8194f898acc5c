package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Exponential Weighted Moving Average
// Refer URL: https://www.investopedia.com/terms/e/ema.asp

//go:generate callbackgen -type EWMA
type EWMA struct {
	types.IntervalWindow
	Values types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *EWMA) Update(value float64) {
	var multiplier = 2.0 / float64(1+inc.Window)

	if len(inc.Values) == 0 {
		inc.Values.Push(value)
		return
	}

	ema := (1-multiplier)*inc.Values.Last() + multiplier*value
	inc.Values.Push(ema)

	if len(inc.Values) > MaxNumOfEWMA {
		inc.Values = inc.Values[MaxNumOfEWMATruncateSize-1:]
	}
}

func (inc *EWMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *EWMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *EWMA) Length() int {
	return len(inc.Values)
}

func (inc *EWMA) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &EWMA{}
