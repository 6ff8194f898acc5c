package engine

import (
	"context"
	"sync"
	"time"

	"github.com/yohannes916/mismartera/pkg/metrics"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/types"
)

const (
	processorIdleSleep = 25 * time.Millisecond
	processorBusySleep = time.Millisecond
)

type procKey struct {
	symbol   string
	interval types.Interval
}

// DataProcessor generates derived bars by polling SessionData for updated
// base intervals; it is never told what to generate. It also feeds every
// appended bar (base and derived) to the indicators keyed to its interval.
//
// A derived bar is emitted only once its period is complete: the first base
// bar of the next period has arrived, or the coordinator flushed the session
// close. Partial derived bars never leak to consumers.
type DataProcessor struct {
	Data *session.SessionData
	Time types.TimeService

	mu sync.Mutex
	// consumed counts base bars already folded into each derived interval,
	// a per-consumer cursor that avoids double-clearing the updated flag
	consumed map[procKey]int
	// indFed counts bars of an interval already fed to indicators
	indFed map[procKey]int
}

func NewDataProcessor(data *session.SessionData, ts types.TimeService) *DataProcessor {
	return &DataProcessor{
		Data:     data,
		Time:     ts,
		consumed: make(map[procKey]int),
		indFed:   make(map[procKey]int),
	}
}

// Reset drops all cursors. Called on session teardown.
func (p *DataProcessor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.consumed = make(map[procKey]int)
	p.indFed = make(map[procKey]int)
}

// Run polls until the context is cancelled, backing off when a scan found
// nothing to do.
func (p *DataProcessor) Run(ctx context.Context) error {
	for {
		n := p.Process()

		sleep := processorIdleSleep
		if n > 0 {
			sleep = processorBusySleep
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
}

// Process runs one poll cycle and returns the amount of work done.
func (p *DataProcessor) Process() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	work := 0
	for symbol, derived := range p.Data.SymbolsWithDerived() {
		base, err := p.Data.BaseInterval(symbol)
		if err != nil {
			continue
		}
		if !p.Data.IsUpdated(symbol, base) {
			continue
		}

		baseBars, err := p.Data.GetBarsRef(symbol, base, true)
		if err != nil {
			log.WithError(err).Errorf("processor: reading base bars for %s", symbol)
			continue
		}

		work += p.feedIndicators(symbol, base, baseBars)

		for _, interval := range derived {
			n, err := p.derive(symbol, base, interval, baseBars, false)
			if err != nil {
				// base bar is stored regardless; skip this generation cycle
				log.WithError(err).Errorf("processor: deriving %s %s", symbol, interval)
				continue
			}
			work += n
		}

		// all derived intervals depending on this base have consumed the
		// update
		p.Data.ClearUpdated(symbol, base)
	}
	return work
}

// Flush emits the pending partial period of every derived interval. The
// coordinator calls it at session close, which terminates all open periods.
func (p *DataProcessor) Flush() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	work := 0
	for symbol, derived := range p.Data.SymbolsWithDerived() {
		base, err := p.Data.BaseInterval(symbol)
		if err != nil {
			continue
		}
		baseBars, err := p.Data.GetBarsRef(symbol, base, true)
		if err != nil {
			continue
		}

		work += p.feedIndicators(symbol, base, baseBars)

		for _, interval := range derived {
			n, err := p.derive(symbol, base, interval, baseBars, true)
			if err != nil {
				log.WithError(err).Errorf("processor: flushing %s %s", symbol, interval)
				continue
			}
			work += n
		}
		p.Data.ClearUpdated(symbol, base)
	}
	return work
}

// derive folds unconsumed base bars into complete buckets of the derived
// interval. With flush set the trailing partial bucket is emitted too.
func (p *DataProcessor) derive(symbol string, base, interval types.Interval, baseBars []types.Bar, flush bool) (int, error) {
	key := procKey{symbol, interval}
	cursor := p.consumed[key]
	if cursor > len(baseBars) {
		// deque rolled under us; restart from what is visible
		cursor = 0
	}

	pending := baseBars[cursor:]
	if len(pending) == 0 {
		return 0, nil
	}

	loc := p.Time.ExchangeTimezone()
	emitted := 0

	start := 0
	for i := 1; i <= len(pending); i++ {
		boundary := i == len(pending)
		if boundary && !flush {
			break
		}
		if !boundary && bucketStart(pending[i].Timestamp, interval, loc).Equal(bucketStart(pending[start].Timestamp, interval, loc)) {
			continue
		}

		// pending[start:i] is one complete bucket
		bar, ok := types.BarSlice(pending[start:i]).Aggregate()
		if !ok {
			continue
		}
		if err := p.Data.AppendBar(symbol, interval, bar); err != nil {
			return emitted, err
		}
		metrics.DerivedBarsGenerated.WithLabelValues(symbol, interval.String()).Inc()
		p.Data.UpdateIndicators(symbol, interval, bar)
		emitted++

		p.consumed[key] = cursor + i
		start = i
	}

	return emitted, nil
}

// feedIndicators pushes bars not yet seen by the indicators of this
// interval.
func (p *DataProcessor) feedIndicators(symbol string, interval types.Interval, bars []types.Bar) int {
	key := procKey{symbol, interval}
	fed := p.indFed[key]
	if fed > len(bars) {
		fed = 0
	}
	for _, b := range bars[fed:] {
		p.Data.UpdateIndicators(symbol, interval, b)
	}
	n := len(bars) - fed
	p.indFed[key] = len(bars)
	return n
}

// bucketStart aligns a timestamp to its derived-interval period using the
// exchange-local calendar: sub-daily periods tile the local day, daily and
// weekly periods follow local dates and ISO weeks rather than sliding
// windows.
func bucketStart(t time.Time, interval types.Interval, loc *time.Location) time.Time {
	lt := t.In(loc)
	switch interval.Unit() {
	case 's', 'm':
		midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
		sec := interval.Seconds()
		into := int(lt.Sub(midnight) / time.Second)
		return midnight.Add(time.Duration(into/sec*sec) * time.Second)

	case 'd':
		day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
		if n := interval.Count(); n > 1 {
			days := int(day.Unix() / 86400)
			day = day.AddDate(0, 0, -(days % n))
		}
		return day

	case 'w':
		day := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
		// back to Monday
		offset := (int(day.Weekday()) + 6) % 7
		week := day.AddDate(0, 0, -offset)
		if n := interval.Count(); n > 1 {
			weeks := int(week.Unix() / (7 * 86400))
			week = week.AddDate(0, 0, -7*(weeks%n))
		}
		return week
	}
	return lt
}
