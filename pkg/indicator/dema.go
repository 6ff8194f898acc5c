package indicator

import (
	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Double Exponential Moving Average
// Refer URL: https://investopedia.com/terms/d/double-exponential-moving-average.asp

//go:generate callbackgen -type DEMA
type DEMA struct {
	types.IntervalWindow
	Values types.Float64Slice
	a1     *EWMA
	a2     *EWMA

	UpdateCallbacks []func(value float64)
}

func (inc *DEMA) Update(value float64) {
	if inc.a1 == nil {
		inc.a1 = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
		inc.a2 = &EWMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
	}

	inc.a1.Update(value)
	inc.a2.Update(inc.a1.Last())
	inc.Values.Push(2*inc.a1.Last() - inc.a2.Last())
	if len(inc.Values) > MaxNumOfEWMA {
		inc.Values = inc.Values[MaxNumOfEWMATruncateSize-1:]
	}
}

func (inc *DEMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *DEMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *DEMA) Length() int {
	return len(inc.Values)
}

func (inc *DEMA) PushBar(bar types.Bar) {
	inc.Update(bar.Close)
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &DEMA{}
