package indicator

import (
	"math"
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Commodity Channel Index
// Refer URL: http://www.andrewshamlet.net/2017/07/08/python-tutorial-cci
// with modification of ddof=0 to let standard deviation to be divided by N
// instead of N-1

//go:generate callbackgen -type CCI
type CCI struct {
	types.IntervalWindow
	Input  types.Float64Slice
	MA     types.Float64Slice
	Values types.Float64Slice

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *CCI) Update(value float64) {
	inc.Input.Push(value)
	if len(inc.Input) > MaxNumOfSeries {
		inc.Input = inc.Input[MaxNumOfSeriesTruncateSize-1:]
	}

	if len(inc.Input) < inc.Window {
		return
	}

	tail := inc.Input.Tail(inc.Window)
	ma := tail.Mean()
	inc.MA.Push(ma)
	if len(inc.MA) > MaxNumOfSeries {
		inc.MA = inc.MA[MaxNumOfSeriesTruncateSize-1:]
	}

	md := 0.
	for _, v := range tail {
		diff := v - ma
		md += diff * diff
	}
	md = math.Sqrt(md / float64(inc.Window))

	if md == 0 {
		inc.Values.Push(0)
	} else {
		inc.Values.Push((value - ma) / (0.015 * md))
	}
	if len(inc.Values) > MaxNumOfSeries {
		inc.Values = inc.Values[MaxNumOfSeriesTruncateSize-1:]
	}
}

func (inc *CCI) Last() float64 {
	return inc.Values.Last()
}

func (inc *CCI) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *CCI) Length() int {
	return len(inc.Values)
}

func (inc *CCI) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update((bar.High + bar.Low + bar.Close) / 3.0)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &CCI{}
