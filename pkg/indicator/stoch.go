package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

const DPeriod int = 3

// Refer: Stochastic Oscillator
// Refer URL: https://www.investopedia.com/terms/s/stochasticoscillator.asp

//go:generate callbackgen -type STOCH
type STOCH struct {
	types.IntervalWindow
	K types.Float64Slice
	D types.Float64Slice

	HighValues types.Float64Slice
	LowValues  types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(k float64, d float64)
}

func (inc *STOCH) Update(high, low, cloze float64) {
	inc.HighValues.Push(high)
	inc.LowValues.Push(low)

	lowest := inc.LowValues.Tail(inc.Window).Min()
	highest := inc.HighValues.Tail(inc.Window).Max()

	if highest == lowest {
		inc.K.Push(50.0)
	} else {
		inc.K.Push(100.0 * (cloze - lowest) / (highest - lowest))
	}

	inc.D.Push(inc.K.Tail(DPeriod).Mean())
}

func (inc *STOCH) LastK() float64 {
	return inc.K.Last()
}

func (inc *STOCH) LastD() float64 {
	return inc.D.Last()
}

func (inc *STOCH) Last() float64 {
	return inc.K.Last()
}

func (inc *STOCH) Length() int {
	return len(inc.K)
}

func (inc *STOCH) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.High, bar.Low, bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.LastK(), inc.LastD())
}

var _ Indicator = &STOCH{}
