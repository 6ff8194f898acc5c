package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Running Moving Average
// Refer: https://pandas.pydata.org/docs/reference/api/pandas.DataFrame.ewm.html#pandas-dataframe-ewm

//go:generate callbackgen -type RMA
type RMA struct {
	types.IntervalWindow
	Values  types.Float64Slice
	counter int
	Adjust  bool
	tmp     float64
	sum     float64

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *RMA) Update(x float64) {
	lambda := 1 / float64(inc.Window)
	if inc.counter == 0 {
		inc.sum = 1
		inc.tmp = x
	} else {
		if inc.Adjust {
			inc.sum = inc.sum*(1-lambda) + 1
			inc.tmp = inc.tmp + (x-inc.tmp)/inc.sum
		} else {
			inc.tmp = inc.tmp*(1-lambda) + x*lambda
		}
	}
	inc.counter++

	if inc.counter < inc.Window {
		inc.Values.Push(0)
		return
	}

	inc.Values.Push(inc.tmp)
}

func (inc *RMA) Last() float64 {
	return inc.Values.Last()
}

func (inc *RMA) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *RMA) Length() int {
	return len(inc.Values)
}

func (inc *RMA) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &RMA{}
