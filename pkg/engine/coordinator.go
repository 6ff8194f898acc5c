package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yohannes916/mismartera/pkg/config"
	"github.com/yohannes916/mismartera/pkg/metrics"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/types"
)

var log = logrus.WithFields(logrus.Fields{
	"component": "coordinator",
})

const pendingQuiescence = 100 * time.Millisecond

type pendingAdd struct {
	symbol  string
	addedBy session.AddedBy
}

// SessionCoordinator drives the session: it drains the per-(symbol,
// interval) queues in timestamp order, advances the virtual clock, runs the
// six-phase daily lifecycle, folds mid-session additions in at safe points
// and gates external readers on data lag.
//
//go:generate callbackgen -type SessionCoordinator
type SessionCoordinator struct {
	Config *config.Config

	Data      *session.SessionData
	Time      types.TimeService
	Source    types.DataSource
	Processor *DataProcessor
	Quality   *QualityManager
	Executor  *ProvisioningExecutor

	runID        string
	requirements *StreamRequirements

	queues *queueSet

	pendingMu       sync.Mutex
	pendingSymbols  []pendingAdd
	streamPaused    bool

	// lag detection
	checkCounters map[string]int
	lagged        map[string]bool

	stopOnce sync.Once
	stopC    chan struct{}

	phaseStartCallbacks         []func(phase string, date time.Time)
	phaseCompleteCallbacks      []func(phase string, date time.Time)
	symbolAddedCallbacks        []func(symbol string, addedBy string)
	symbolFailedCallbacks       []func(symbol string, reason string)
	lagDetectedCallbacks        []func(symbol string, lag time.Duration)
	sessionActivatedCallbacks   []func()
	sessionDeactivatedCallbacks []func()
	sessionEndCallbacks         []func(date time.Time)
}

// NewSessionCoordinator wires the coordinator with its workers over the
// shared session data.
func NewSessionCoordinator(cfg *config.Config, data *session.SessionData, ts types.TimeService, source types.DataSource) *SessionCoordinator {
	c := &SessionCoordinator{
		Config:    cfg,
		Data:      data,
		Time:      ts,
		Source:    source,
		Processor: NewDataProcessor(data, ts),
		Quality:   NewQualityManager(data, ts),

		runID:         uuid.NewString(),
		queues:        newQueueSet(),
		checkCounters: make(map[string]int),
		lagged:        make(map[string]bool),
		stopC:         make(chan struct{}),
	}
	c.Quality.Live = cfg.Mode == config.ModeLive

	c.Executor = &ProvisioningExecutor{
		Data:                 data,
		Source:               source,
		Time:                 ts,
		LoadSession:          c.loadSessionQueue,
		QualityForHistorical: c.Quality.HistoricalQuality,
	}
	return c
}

// Stop asks the streaming loop to exit at the next iteration boundary. An
// in-flight append is never interrupted.
func (c *SessionCoordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopC) })
}

// ValidateStreams is Phase 0: the single system-wide stream check. It runs
// once per coordinator, not per day.
func (c *SessionCoordinator) ValidateStreams() error {
	req, err := AnalyzeStreams(
		c.Config.SessionData.Streams,
		c.Config.SessionData.Indicators.Session,
		c.Config.SessionData.Indicators.Historical,
	)
	if err != nil {
		return err
	}
	c.requirements = req
	log.Infof("run %s: base interval %s, derivables %v", c.runID, req.BaseInterval, req.DerivableIntervals)
	return nil
}

// Run executes the backtest: Phase 0 once, then the six-phase lifecycle for
// each trading day in the configured window. The data processor and quality
// manager run alongside for the whole backtest.
func (c *SessionCoordinator) Run(ctx context.Context) error {
	if err := c.ValidateStreams(); err != nil {
		return err
	}

	start, end, err := c.Config.Backtest.Window()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Processor.Run(ctx) })
	g.Go(func() error { return c.Quality.Run(ctx) })
	g.Go(func() error {
		defer cancel()
		loc := c.Time.ExchangeTimezone()
		for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
			select {
			case <-ctx.Done():
				return nil
			case <-c.stopC:
				return nil
			default:
			}

			day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
			if !c.Time.IsTradingDay(day) {
				continue
			}
			if err := c.runDay(ctx, day); err != nil {
				// a fully failed day advances and retries on the next one
				log.WithError(err).Errorf("run %s: day %s failed", c.runID, day.Format("2006-01-02"))
			}
		}
		return nil
	})

	return g.Wait()
}

// runDay runs phases 1-5 for one trading day.
func (c *SessionCoordinator) runDay(ctx context.Context, date time.Time) error {
	// Phase 1: teardown. No state crosses a session boundary.
	c.EmitPhaseStart("teardown", date)
	c.Data.Clear()
	c.queues.clear()
	c.Processor.Reset()
	c.Quality.Reset()
	c.resetLagState()
	c.Data.SetSessionDate(date)
	if open, _, ok := c.Time.MarketHours(date); ok {
		c.Time.SetVirtualTime(open)
	}
	c.EmitPhaseComplete("teardown", date)

	// Phase 2: initialization via the three-phase add for each config symbol
	c.EmitPhaseStart("initialization", date)
	if err := c.provisionConfigSymbols(ctx); err != nil {
		return errors.Wrap(err, "session start")
	}
	c.EmitPhaseComplete("initialization", date)

	// Phase 3: streaming
	c.EmitPhaseStart("streaming", date)
	c.Data.ActivateSession()
	metrics.SessionActive.Set(1)
	c.EmitSessionActivated()
	c.streamingLoop(ctx)
	c.EmitPhaseComplete("streaming", date)

	// Phase 4: session end
	c.EmitPhaseStart("session_end", date)
	c.Data.DeactivateSession()
	metrics.SessionActive.Set(0)
	c.Processor.Flush()
	c.finalQualityPass()
	c.Data.RollSession(c.Time.NextTradingDate(date))
	c.EmitSessionEnd(date)
	c.EmitPhaseComplete("session_end", date)

	// Phase 5: advance happens in the caller's day loop
	return nil
}

func (c *SessionCoordinator) provisionConfigSymbols(ctx context.Context) error {
	histDays := 0
	if h := c.Config.SessionData.Historical; h != nil && h.Enabled {
		histDays = h.TrailingDays
	}

	reqs := make([]ProvisioningRequirements, 0, len(c.Config.SessionData.Symbols))
	for _, symbol := range c.Config.SessionData.Symbols {
		reqs = append(reqs, c.Executor.AnalyzeFull(
			OpConfigLoad, symbol, c.requirements,
			c.Config.SessionData.Indicators.Session,
			session.AddedByConfig, histDays,
		))
	}

	results, err := c.Executor.ExecuteBatch(ctx, reqs)
	for _, r := range results {
		if r.Err != nil {
			reason := "provisioning_failed"
			var verr *ValidationError
			if errors.As(r.Err, &verr) {
				reason = verr.Reason
			}
			log.WithError(r.Err).Errorf("symbol %s dropped", r.Requirements.Symbol)
			c.EmitSymbolFailed(r.Requirements.Symbol, reason)
			continue
		}
		c.EmitSymbolAdded(r.Requirements.Symbol, string(r.Requirements.AddedBy))
	}
	return err
}

// loadSessionQueue feeds the session day's stored bars into the symbol's
// queue; the provisioning executor calls it as the load_session step.
func (c *SessionCoordinator) loadSessionQueue(ctx context.Context, symbol string, interval types.Interval) error {
	date := c.Data.SessionDate()
	bars, err := c.Source.LoadHistoricalBars(ctx, symbol, interval, date, date)
	if err != nil {
		return err
	}
	c.queues.push(symbol, interval, bars...)
	return nil
}

// streamingLoop is the chronological drain (Phase 3): process pending adds,
// find the earliest queue head, advance the clock, pop every bar at that
// timestamp, check lag, apply the speed delay. An empty queue set means the
// day is complete.
func (c *SessionCoordinator) streamingLoop(ctx context.Context) {
	var prev time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopC:
			return
		default:
		}

		c.processPendingSymbols(ctx)

		t, ok := c.queues.earliestHead()
		if !ok {
			return
		}

		// the virtual clock never rewinds; a freshly added symbol draining
		// old bars leaves the clock where it is and shows up as lag
		if t.After(c.Time.Now()) {
			c.Time.SetVirtualTime(t)
		}

		processed := c.processBarsAt(t)
		c.checkLag(processed)
		c.applySpeedDelay(prev, t)
		prev = t
	}
}

// processBarsAt pops every queue head stamped t and appends it. Ordering
// across symbols at the same timestamp is undefined; per symbol the queue
// guarantees monotone order.
func (c *SessionCoordinator) processBarsAt(t time.Time) []types.SymbolBar {
	popped := c.queues.popAt(t)

	for _, sb := range popped {
		if err := c.Data.AppendBar(sb.Symbol, sb.Interval, sb.Bar); err != nil {
			if errors.Is(err, types.ErrOutOfOrderBar) {
				metrics.OutOfOrderBars.WithLabelValues(sb.Symbol, sb.Interval.String()).Inc()
				log.WithError(err).Errorf("dropping out-of-order bar %s %s", sb.Symbol, sb.Interval)
				continue
			}
			log.WithError(err).Errorf("append failed for %s %s", sb.Symbol, sb.Interval)
			continue
		}
		metrics.BarsProcessed.WithLabelValues(sb.Symbol, sb.Interval.String()).Inc()
		c.Quality.Notify(sb.Symbol, sb.Interval)
	}
	return popped
}

// checkLag implements the per-symbol catch-up check: every
// catchup_check_interval bars (checked before the increment, so a symbol's
// first bar triggers immediately) the bar timestamp is compared against the
// virtual clock. Any symbol over the threshold deactivates the session;
// once every checked symbol is back within the threshold the session
// reactivates.
func (c *SessionCoordinator) checkLag(processed []types.SymbolBar) {
	streaming := c.Config.SessionData.Streaming
	now := c.Time.Now()

	// an unset check interval means check every bar
	checkEvery := streaming.CatchupCheckInterval
	if checkEvery <= 0 {
		checkEvery = 1
	}

	checked := false
	for _, sb := range processed {
		counter := c.checkCounters[sb.Symbol]
		if counter%checkEvery == 0 {
			lag := now.Sub(sb.Bar.Timestamp)
			metrics.SymbolLagSeconds.WithLabelValues(sb.Symbol).Set(lag.Seconds())

			over := lag > time.Duration(streaming.CatchupThresholdSeconds)*time.Second
			c.lagged[sb.Symbol] = over
			checked = true
			if over {
				log.Warnf("symbol %s lagging by %s", sb.Symbol, lag)
				c.EmitLagDetected(sb.Symbol, lag)
			}
		}
		c.checkCounters[sb.Symbol] = counter + 1
	}
	if !checked {
		return
	}

	anyLagged := false
	for _, over := range c.lagged {
		if over {
			anyLagged = true
			break
		}
	}

	if anyLagged && c.Data.SessionActive() {
		c.Data.DeactivateSession()
		metrics.SessionActive.Set(0)
		c.EmitSessionDeactivated()
	} else if !anyLagged && !c.Data.SessionActive() {
		c.Data.ActivateSession()
		metrics.SessionActive.Set(1)
		c.EmitSessionActivated()
	}
}

func (c *SessionCoordinator) resetLagState() {
	c.checkCounters = make(map[string]int)
	c.lagged = make(map[string]bool)
}

// applySpeedDelay sleeps 60/speed_multiplier seconds per minute of virtual
// advance in clock-driven mode. speed_multiplier 0 is data-driven: no
// sleep. Sub-millisecond delays are skipped.
func (c *SessionCoordinator) applySpeedDelay(prev, cur time.Time) {
	if c.Config.Backtest == nil || c.Config.Backtest.SpeedMultiplier <= 0 || prev.IsZero() {
		return
	}

	advance := cur.Sub(prev)
	if advance <= 0 {
		return
	}

	delay := time.Duration(float64(advance) / c.Config.Backtest.SpeedMultiplier)
	if delay < time.Millisecond {
		return
	}
	time.Sleep(delay)
}

func (c *SessionCoordinator) finalQualityPass() {
	for _, symbol := range c.Data.ActiveSymbols() {
		base, err := c.Data.BaseInterval(symbol)
		if err != nil {
			continue
		}
		c.Quality.Notify(symbol, base)
	}
	c.Quality.ProcessPending()
}
