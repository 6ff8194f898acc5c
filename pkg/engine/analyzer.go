package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/yohannes916/mismartera/pkg/config"
	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/types"
)

// tradingSessionSeconds is the regular US equity session length used for
// the conservative bars-per-day estimate (390 one-minute bars).
const tradingSessionSeconds = 6*60*60 + 30*60

// StreamRequirements is the outcome of requirement analysis: the smallest
// base to stream, what derives from it, and how much history each interval
// needs, with a reason audit trail.
type StreamRequirements struct {
	BaseInterval       types.Interval
	DerivableIntervals []types.Interval

	// HistoricalLookbackDays is the conservative calendar-day lookback per
	// interval implied by indicator warmups.
	HistoricalLookbackDays map[types.Interval]int

	// ImplicitAdditions are intervals required by indicators but absent from
	// the requested streams.
	ImplicitAdditions []types.Interval

	Reasons []string
}

// AnalyzeStreams computes the stream requirements for a set of requested
// intervals and indicator descriptors.
//
//  1. Union requested bar intervals with intervals indicators require.
//  2. Compute the required base per interval, pick the minimum by priority
//     1s < 1m < 1d < 1w.
//  3. Everything above the base becomes a derivation target.
//  4. Translate indicator warmups into calendar-day lookbacks.
//
// Hourly intervals fail with ErrInvalidInterval; a request with no bar
// intervals (e.g. quotes only) fails with ErrNoBarIntervals.
func AnalyzeStreams(streams []string, sessionIndicators []indicator.Config, historicalIndicators []config.HistoricalIndicatorConfig) (*StreamRequirements, error) {
	req := &StreamRequirements{
		HistoricalLookbackDays: make(map[types.Interval]int),
	}

	requested := make(map[types.Interval]struct{})
	for _, s := range streams {
		parsed, err := types.ParseInterval(s)
		if err != nil {
			return nil, err
		}
		if parsed == types.IntervalQuotes {
			continue
		}
		requested[parsed] = struct{}{}
	}

	for _, cfg := range sessionIndicators {
		if _, err := types.ParseInterval(cfg.Interval.String()); err != nil {
			return nil, err
		}
		if _, ok := requested[cfg.Interval]; !ok {
			requested[cfg.Interval] = struct{}{}
			req.ImplicitAdditions = append(req.ImplicitAdditions, cfg.Interval)
			req.Reasons = append(req.Reasons,
				fmt.Sprintf("interval %s added implicitly by indicator %s", cfg.Interval, cfg.Key()))
		}
	}

	if len(requested) == 0 {
		return nil, errors.Wrap(types.ErrNoBarIntervals, "streams contain no bar intervals")
	}

	var base types.Interval
	for interval := range requested {
		b := interval.RequiredBase()
		base = types.MinBase(base, b)
	}
	req.BaseInterval = base
	req.Reasons = append(req.Reasons, fmt.Sprintf("base interval %s selected by stream priority", base))

	for interval := range requested {
		if interval == base {
			continue
		}
		if !interval.DerivableFrom(base) {
			return nil, errors.Wrapf(types.ErrInvalidInterval,
				"interval %s cannot be derived from base %s", interval, base)
		}
		req.DerivableIntervals = append(req.DerivableIntervals, interval)
	}
	sort.Slice(req.DerivableIntervals, func(i, j int) bool {
		return req.DerivableIntervals[i].Seconds() < req.DerivableIntervals[j].Seconds()
	})

	for _, cfg := range sessionIndicators {
		warmup, err := indicator.Warmup(cfg)
		if err != nil {
			return nil, err
		}
		days := lookbackDays(cfg.Interval, warmup)
		if days > req.HistoricalLookbackDays[cfg.Interval] {
			req.HistoricalLookbackDays[cfg.Interval] = days
			req.Reasons = append(req.Reasons,
				fmt.Sprintf("indicator %s needs %d warmup bars => %d lookback days", cfg.Key(), warmup, days))
		}
	}

	for _, cfg := range historicalIndicators {
		warmup, err := indicator.Warmup(cfg.Config)
		if err != nil {
			return nil, err
		}

		var days int
		if cfg.Unit == "weeks" {
			days = int(math.Ceil(float64(warmup) * 7 * 1.1))
		} else {
			days = lookbackDays(cfg.Interval, warmup)
		}
		if days > req.HistoricalLookbackDays[cfg.Interval] {
			req.HistoricalLookbackDays[cfg.Interval] = days
		}
	}

	return req, nil
}

// lookbackDays translates a warmup bar count into conservative calendar
// days: intraday divides by bars per trading day and buffers 1.5x for
// weekends and holidays; daily buffers 1.5x; weekly converts weeks to days
// with a 1.1x buffer.
func lookbackDays(interval types.Interval, warmupBars int) int {
	if warmupBars <= 0 {
		return 0
	}

	switch interval.Unit() {
	case 's', 'm':
		barsPerDay := tradingSessionSeconds / interval.Seconds()
		if barsPerDay < 1 {
			barsPerDay = 1
		}
		days := math.Ceil(float64(warmupBars) / float64(barsPerDay))
		return int(math.Ceil(days * 1.5))
	case 'd':
		return int(math.Ceil(float64(warmupBars) * float64(interval.Count()) * 1.5))
	case 'w':
		return int(math.Ceil(float64(warmupBars) * float64(interval.Count()) * 7 * 1.1))
	}
	return 0
}

// RequiredIntervals is the full set the analysis provisions: the base plus
// every derivable interval.
func (r *StreamRequirements) RequiredIntervals() []types.Interval {
	out := []types.Interval{r.BaseInterval}
	return append(out, r.DerivableIntervals...)
}

// MaxLookbackDays returns the largest lookback across intervals.
func (r *StreamRequirements) MaxLookbackDays() int {
	max := 0
	for _, d := range r.HistoricalLookbackDays {
		if d > max {
			max = d
		}
	}
	return max
}
