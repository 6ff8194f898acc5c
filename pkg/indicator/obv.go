package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: On-Balance Volume
// Refer URL: https://www.investopedia.com/terms/o/onbalancevolume.asp

//go:generate callbackgen -type OBV
type OBV struct {
	types.IntervalWindow
	Values   types.Float64Slice
	PrePrice float64

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *OBV) Update(price, volume float64) {
	if len(inc.Values) == 0 {
		inc.PrePrice = price
		inc.Values.Push(volume)
		return
	}

	if price < inc.PrePrice {
		inc.Values.Push(inc.Last() - volume)
	} else if price > inc.PrePrice {
		inc.Values.Push(inc.Last() + volume)
	} else {
		inc.Values.Push(inc.Last())
	}
	inc.PrePrice = price

	if len(inc.Values) > MaxNumOfSeries {
		inc.Values = inc.Values[MaxNumOfSeriesTruncateSize-1:]
	}
}

func (inc *OBV) Last() float64 {
	return inc.Values.Last()
}

func (inc *OBV) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *OBV) Length() int {
	return len(inc.Values)
}

func (inc *OBV) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close, float64(bar.Volume))
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &OBV{}
