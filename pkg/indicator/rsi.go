package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Refer: Relative Strength Index
// Refer URL: https://www.investopedia.com/terms/r/rsi.asp
// Uses Wilder's smoothing (RMA) for the average gain and loss.

//go:generate callbackgen -type RSI
type RSI struct {
	types.IntervalWindow
	Values types.Float64Slice

	up        *RMA
	down      *RMA
	prevClose float64
	counter   int

	EndTime         time.Time
	UpdateCallbacks []func(value float64)
}

func (inc *RSI) Update(value float64) {
	if inc.up == nil {
		inc.up = &RMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
		inc.down = &RMA{IntervalWindow: types.IntervalWindow{Interval: inc.Interval, Window: inc.Window}}
		inc.prevClose = value
		inc.counter = 1
		return
	}

	change := value - inc.prevClose
	inc.prevClose = value
	inc.counter++

	var gain, loss float64
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	inc.up.Update(gain)
	inc.down.Update(loss)

	// the first RSI value needs a full window of changes plus the seed close
	if inc.counter < inc.Window+1 {
		return
	}

	avgLoss := inc.down.Last()
	if avgLoss == 0 {
		inc.Values.Push(100)
		return
	}

	rs := inc.up.Last() / avgLoss
	inc.Values.Push(100 - 100/(1+rs))
	if len(inc.Values) > MaxNumOfSeries {
		inc.Values = inc.Values[MaxNumOfSeriesTruncateSize-1:]
	}
}

func (inc *RSI) Last() float64 {
	return inc.Values.Last()
}

func (inc *RSI) Index(i int) float64 {
	return inc.Values.Index(i)
}

func (inc *RSI) Length() int {
	return len(inc.Values)
}

func (inc *RSI) PushBar(bar types.Bar) {
	if inc.EndTime != zeroTime && !bar.Timestamp.After(inc.EndTime) {
		return
	}

	inc.Update(bar.Close)
	inc.EndTime = bar.Timestamp
	inc.EmitUpdate(inc.Last())
}

var _ Indicator = &RSI{}
