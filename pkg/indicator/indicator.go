package indicator

import (
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// Indicator is the behavioural contract every indicator satisfies: feed it
// bars in timestamp order, read the latest value back. Values are
// deterministic functions of the observed bar sequence and the indicator's
// own prior state.
type Indicator interface {
	PushBar(bar types.Bar)
	Last() float64
	Length() int
}

var zeroTime = time.Time{}

const MaxNumOfSeries = 5_000
const MaxNumOfSeriesTruncateSize = 100

// MaxNumOfEWMA bounds the in-memory EWMA series growth.
const MaxNumOfEWMA = 1_000
const MaxNumOfEWMATruncateSize = 100
