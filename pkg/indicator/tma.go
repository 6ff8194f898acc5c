package indicator

import (
	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Triangular Moving Average
// Refer URL: https://en.wikipedia.org/wiki/Moving_average

//go:generate callbackgen -type TMA
type TMA struct {
	types.IntervalWindow
	s1 *SMA
	s2 *SMA

	UpdateCallbacks []func(value float64)
}

func (inc *TMA) Update(value float64) {
	if inc.s1 == nil {
		w := (inc.Window + 1) / 2
		inc.s1 = &SMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: w}}
		inc.s2 = &SMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: w}}
	}

	inc.s1.Update(value)
	inc.s2.Update(inc.s1.Last())
}

func (inc *TMA) Last() float64 {
	if inc.s2 == nil {
		return 0
	}
	return inc.s2.Last()
}

func (inc *TMA) Index(i int) float64 {
	if inc.s2 == nil {
		return 0
	}
	return inc.s2.Index(i)
}

func (inc *TMA) Length() int {
	if inc.s2 == nil {
		return 0
	}
	return inc.s2.Length()
}

func (inc *TMA) PushBar(bar types.Bar) {
	inc.Update(bar.Close)
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &TMA{}
