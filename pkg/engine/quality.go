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
	qualityQueueSize    = 64
	qualityThrottle     = time.Second
	failedGapRetryEvery = 30 * time.Second
)

type qualityNote struct {
	symbol   string
	interval types.Interval
}

// QualityManager scores data quality per (symbol, interval) and detects
// gaps. The coordinator notifies it after each base-interval append through
// a small bounded queue; scores and gap lists are written back into
// SessionData. Derived intervals inherit their base's quality, since a
// derived bar only exists when its source period was fully covered.
type QualityManager struct {
	Data *session.SessionData
	Time types.TimeService

	// Live enables failed-gap retry bookkeeping; backtests re-score on the
	// next append anyway.
	Live bool

	notifications chan qualityNote

	mu          sync.Mutex
	lastCalc    map[procKey]time.Time
	failedGaps  map[procKey][]types.GapInfo
}

func NewQualityManager(data *session.SessionData, ts types.TimeService) *QualityManager {
	return &QualityManager{
		Data:          data,
		Time:          ts,
		notifications: make(chan qualityNote, qualityQueueSize),
		lastCalc:      make(map[procKey]time.Time),
		failedGaps:    make(map[procKey][]types.GapInfo),
	}
}

// Notify enqueues a quality recalculation. Only base intervals notify; the
// queue is bounded and a full queue drops the note, the next append will
// re-notify.
func (q *QualityManager) Notify(symbol string, interval types.Interval) {
	if !interval.IsBase() {
		return
	}
	select {
	case q.notifications <- qualityNote{symbol, interval}:
	default:
	}
}

// Reset clears throttle and retry state on session teardown.
func (q *QualityManager) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastCalc = make(map[procKey]time.Time)
	q.failedGaps = make(map[procKey][]types.GapInfo)
}

// Run consumes the notification queue until the context is cancelled. In
// live mode intervals with unfilled gaps are re-scored periodically.
func (q *QualityManager) Run(ctx context.Context) error {
	retry := time.NewTicker(failedGapRetryEvery)
	defer retry.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case note := <-q.notifications:
			q.process(note, false)

		case <-retry.C:
			if !q.Live {
				continue
			}
			q.mu.Lock()
			keys := make([]procKey, 0, len(q.failedGaps))
			for key := range q.failedGaps {
				keys = append(keys, key)
			}
			q.mu.Unlock()
			for _, key := range keys {
				q.process(qualityNote{key.symbol, key.interval}, true)
			}
		}
	}
}

// ProcessPending drains queued notifications synchronously. The coordinator
// uses it for the final quality pass at session end; tests use it to avoid
// timing assumptions.
func (q *QualityManager) ProcessPending() {
	for {
		select {
		case note := <-q.notifications:
			q.process(note, true)
		default:
			return
		}
	}
}

func (q *QualityManager) process(note qualityNote, force bool) {
	key := procKey{note.symbol, note.interval}

	q.mu.Lock()
	if !force {
		if last, ok := q.lastCalc[key]; ok && time.Since(last) < qualityThrottle {
			q.mu.Unlock()
			return
		}
	}
	q.lastCalc[key] = time.Now()
	q.mu.Unlock()

	bars, err := q.Data.GetBarsRef(note.symbol, note.interval, true)
	if err != nil {
		log.WithError(err).Errorf("quality: reading bars for %s %s", note.symbol, note.interval)
		return
	}

	quality, gaps := q.Score(bars, note.interval)

	if err := q.Data.SetQuality(note.symbol, note.interval, quality); err != nil {
		return
	}
	if err := q.Data.SetGaps(note.symbol, note.interval, gaps); err != nil {
		return
	}
	metrics.DataQuality.WithLabelValues(note.symbol, note.interval.String()).Set(quality)

	q.mu.Lock()
	if q.Live && len(gaps) > 0 {
		q.failedGaps[key] = gaps
	} else {
		delete(q.failedGaps, key)
	}
	q.mu.Unlock()

	q.propagate(note.symbol)
}

// propagate copies the base quality onto every derived interval of the
// symbol and consumes their updated flags.
func (q *QualityManager) propagate(symbol string) {
	base, err := q.Data.BaseInterval(symbol)
	if err != nil {
		return
	}
	quality, err := q.Data.Quality(symbol, base)
	if err != nil {
		return
	}

	for _, interval := range q.Data.SymbolsWithDerived()[symbol] {
		if err := q.Data.SetQuality(symbol, interval, quality); err != nil {
			continue
		}
		metrics.DataQuality.WithLabelValues(symbol, interval.String()).Set(quality)
		q.Data.ClearUpdated(symbol, interval)
	}
}

// Score computes quality = actual/expected x 100 over the session window
// and scans for gaps. Sub-daily intervals expect one bar per period from
// the session open to the current clock (capped at the close); daily and
// longer intervals count trading days.
func (q *QualityManager) Score(bars []types.Bar, interval types.Interval) (float64, []types.GapInfo) {
	if interval.IsSubDaily() {
		return q.scoreIntraday(bars, interval)
	}
	return q.scoreDaily(bars, interval)
}

func (q *QualityManager) scoreIntraday(bars []types.Bar, interval types.Interval) (float64, []types.GapInfo) {
	now := q.Time.Now()
	open, close, ok := q.Time.MarketHours(q.Data.SessionDate())
	if !ok {
		return 0, nil
	}

	end := now
	if end.After(close) {
		end = close
	}
	if end.Before(open) {
		return 0, nil
	}

	sec := interval.Seconds()
	expected := int(end.Sub(open)/time.Second)/sec + 1
	if expected <= 0 {
		return 0, nil
	}

	actual := len(bars)
	quality := float64(actual) / float64(expected) * 100
	if quality > 100 {
		quality = 100
	}

	return quality, q.scanGaps(bars, interval)
}

// scoreDaily treats quality as trading-day coverage: expected counts
// trading days (or calendar weeks containing a trading day for weekly
// intervals) from the first bar to the clock, gaps are missing trading
// days.
func (q *QualityManager) scoreDaily(bars []types.Bar, interval types.Interval) (float64, []types.GapInfo) {
	if len(bars) == 0 {
		return 0, nil
	}

	start := bars[0].Timestamp
	now := q.Time.Now()

	var expected int
	if interval.Unit() == 'w' {
		expected = q.expectedWeeks(start, now, interval)
	} else {
		expected = q.Time.CountTradingDays(start, now) / interval.Count()
		if q.Time.CountTradingDays(start, now)%interval.Count() != 0 {
			expected++
		}
	}
	if expected <= 0 {
		return 0, nil
	}

	quality := float64(len(bars)) / float64(expected) * 100
	if quality > 100 {
		quality = 100
	}

	return quality, q.scanTradingDayGaps(bars, interval)
}

// expectedWeeks counts calendar weeks in the window containing at least one
// trading day.
func (q *QualityManager) expectedWeeks(a, b time.Time, interval types.Interval) int {
	loc := q.Time.ExchangeTimezone()
	weeks := 0
	for w := bucketStart(a, types.Interval1w, loc); !w.After(b); w = w.AddDate(0, 0, 7) {
		for d := 0; d < 7; d++ {
			day := w.AddDate(0, 0, d)
			if day.After(b) {
				break
			}
			if q.Time.IsTradingDay(day) {
				weeks++
				break
			}
		}
	}
	if n := interval.Count(); n > 1 {
		weeks = (weeks + n - 1) / n
	}
	return weeks
}

// scanGaps finds timestamp deltas larger than the expected period.
func (q *QualityManager) scanGaps(bars []types.Bar, interval types.Interval) []types.GapInfo {
	var gaps []types.GapInfo
	period := interval.Duration()

	for i := 1; i < len(bars); i++ {
		delta := bars[i].Timestamp.Sub(bars[i-1].Timestamp)
		if delta <= period {
			continue
		}
		missing := int(delta/period) - 1
		gaps = append(gaps, types.GapInfo{
			StartTime:    bars[i-1].Timestamp.Add(period),
			EndTime:      bars[i].Timestamp.Add(-period),
			MissingCount: missing,
		})
	}
	return gaps
}

// scanTradingDayGaps reports missing trading days between consecutive daily
// bars.
func (q *QualityManager) scanTradingDayGaps(bars []types.Bar, interval types.Interval) []types.GapInfo {
	if interval.Unit() != 'd' || interval.Count() != 1 {
		return nil
	}

	var gaps []types.GapInfo
	for i := 1; i < len(bars); i++ {
		missing := q.Time.CountTradingDays(bars[i-1].Timestamp, bars[i].Timestamp) - 2
		if missing <= 0 {
			continue
		}
		gaps = append(gaps, types.GapInfo{
			StartTime:    q.Time.NextTradingDate(bars[i-1].Timestamp),
			EndTime:      bars[i].Timestamp.AddDate(0, 0, -1),
			MissingCount: missing,
		})
	}
	return gaps
}

// HistoricalQuality scores archived coverage of an interval over a past
// window; the provisioning executor uses it for compute_quality.
func (q *QualityManager) HistoricalQuality(symbol string, interval types.Interval, histStart, histEnd time.Time) float64 {
	bars := q.Data.HistoricalBars(symbol, interval)
	if len(bars) == 0 {
		return 0
	}

	expectedDays := q.Time.CountTradingDays(histStart, histEnd)
	if expectedDays == 0 {
		return 0
	}

	seen := make(map[string]struct{})
	for _, b := range bars {
		seen[b.Timestamp.Format("2006-01-02")] = struct{}{}
	}

	quality := float64(len(seen)) / float64(expectedDays) * 100
	if quality > 100 {
		quality = 100
	}
	return quality
}
