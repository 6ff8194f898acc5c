package indicator

import (
	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Cumulative Moving Average, Cumulative Average
// Refer: https://en.wikipedia.org/wiki/Moving_average

//go:generate callbackgen -type CMA
type CMA struct {
	Interval types.Interval
	Values   types.Float64Slice
	length   float64

	UpdateCallbacks []func(value float64)
}

func (inc *CMA) Update(x float64) {
	newVal := (inc.Values.Last()*inc.length + x) / (inc.length + 1.)
	inc.length += 1
	inc.Values.Push(newVal)
	if len(inc.Values) > MaxNumOfEWMA {
		inc.Values = inc.Values[MaxNumOfEWMATruncateSize-1:]
	}
}

func (inc *CMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *CMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *CMA) Length() int {
	return len(inc.Values)
}

func (inc *CMA) PushBar(bar types.Bar) {
	inc.Update(bar.Close)
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &CMA{}
