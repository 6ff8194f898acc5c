package indicator

import (
	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Triple Exponential Moving Average
// Refer URL: https://www.investopedia.com/terms/t/triple-exponential-moving-average.asp

//go:generate callbackgen -type TEMA
type TEMA struct {
	types.IntervalWindow
	Values types.Float64Slice
	a1     *EWMA
	a2     *EWMA
	a3     *EWMA

	UpdateCallbacks []func(value float64)
}

func (inc *TEMA) Update(value float64) {
	if inc.a1 == nil {
		inc.a1 = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
		inc.a2 = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
		inc.a3 = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
	}

	inc.a1.Update(value)
	inc.a2.Update(inc.a1.Last())
	inc.a3.Update(inc.a2.Last())
	inc.Values.Push(3*inc.a1.Last() - 3*inc.a2.Last() + inc.a3.Last())
	if len(inc.Values) > MaxNumOfEWMA {
		inc.Values = inc.Values[MaxNumOfEWMATruncateSize-1:]
	}
}

func (inc *TEMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *TEMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *TEMA) Length() int {
	return len(inc.Values)
}

func (inc *TEMA) PushBar(bar types.Bar) {
	inc.Update(bar.Close)
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &TEMA{}
