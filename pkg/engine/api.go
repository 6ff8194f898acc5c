package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/yohannes916/mismartera/pkg/indicator"
	"github.com/yohannes916/mismartera/pkg/session"
	"github.com/yohannes916/mismartera/pkg/types"
)

// AddSymbol queues a full mid-session addition. The symbol is provisioned
// at the top of the next streaming iteration under the stream-paused gate.
// Adding an already-pending symbol is idempotent; adding a fully
// provisioned symbol returns ErrDuplicateSymbol. A symbol present as adhoc
// is upgraded in place.
func (c *SessionCoordinator) AddSymbol(symbol string, addedBy session.AddedBy) error {
	if c.Data.HasSymbol(symbol) {
		meta, err := c.Data.Metadata(symbol)
		if err != nil {
			return err
		}
		if meta.MeetsSessionConfigRequirements {
			return errors.Wrap(types.ErrDuplicateSymbol, symbol)
		}
		// falls through: queued as an upgrade
	}

	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for _, p := range c.pendingSymbols {
		if p.symbol == symbol {
			return nil
		}
	}
	c.pendingSymbols = append(c.pendingSymbols, pendingAdd{symbol: symbol, addedBy: addedBy})
	log.Infof("symbol %s queued for mid-session add by %s", symbol, addedBy)
	return nil
}

// CancelPendingSymbol drops a symbol still waiting in the pending set.
func (c *SessionCoordinator) CancelPendingSymbol(symbol string) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	for i, p := range c.pendingSymbols {
		if p.symbol == symbol {
			c.pendingSymbols = append(c.pendingSymbols[:i], c.pendingSymbols[i+1:]...)
			return true
		}
	}
	return false
}

// AddBar is the adhoc single-bar addition. It does not pause the stream; a
// missing symbol is auto-provisioned with a minimal structure carrying only
// the bar's interval.
func (c *SessionCoordinator) AddBar(symbol string, interval types.Interval, bar types.Bar) error {
	if _, err := types.ParseInterval(interval.String()); err != nil {
		return err
	}

	if !c.Data.HasSymbol(symbol) {
		pr := c.Executor.AnalyzeAdhocBar(symbol, interval)
		if err := c.Executor.Validate(&pr); err != nil {
			return err
		}
		if err := c.Executor.Provision(context.Background(), &pr); err != nil {
			return err
		}
	}

	if err := c.Data.AppendBar(symbol, interval, bar); err != nil {
		return err
	}
	c.Quality.Notify(symbol, interval)
	return nil
}

// AddIndicator is the adhoc single-indicator addition: lightweight
// validation, auto-provisioning of the symbol when missing, and warmup from
// whatever bars are already present. Only the requested indicator is
// registered.
func (c *SessionCoordinator) AddIndicator(symbol string, cfg indicator.Config) error {
	if _, err := types.ParseInterval(cfg.Interval.String()); err != nil {
		return err
	}
	warmup, err := indicator.Warmup(cfg)
	if err != nil {
		return err
	}

	if !c.Data.HasSymbol(symbol) {
		pr := c.Executor.AnalyzeAdhocBar(symbol, cfg.Interval)
		pr.Operation = OpAdhocIndicator
		if err := c.Executor.Validate(&pr); err != nil {
			return err
		}
		if err := c.Executor.Provision(context.Background(), &pr); err != nil {
			return err
		}
	}

	if _, err := c.Data.Indicator(symbol, cfg.Key()); err == nil {
		return nil
	}

	state, err := indicator.New(cfg)
	if err != nil {
		return err
	}
	data := &session.IndicatorData{Config: cfg, State: state, Warmup: warmup}

	bars, err := c.Data.GetBars(symbol, cfg.Interval, time.Time{}, 0, true)
	if err == nil {
		for _, b := range bars {
			data.Update(b)
		}
	}
	return c.Data.SetIndicator(symbol, cfg.Key(), data)
}

// RemoveSymbol drops the symbol from the session, its queues and the lag
// state, and cancels any pending add.
func (c *SessionCoordinator) RemoveSymbol(symbol string) error {
	c.CancelPendingSymbol(symbol)
	c.queues.removeSymbol(symbol)

	c.pendingMu.Lock()
	delete(c.checkCounters, symbol)
	delete(c.lagged, symbol)
	c.pendingMu.Unlock()

	return c.Data.RemoveSymbol(symbol)
}

// StreamPaused reports the provisioning quiescence gate.
func (c *SessionCoordinator) StreamPaused() bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.streamPaused
}

// processPendingSymbols drains the pending set at the top of a streaming
// iteration: raise the gate, wait a short quiescence interval, run the
// three-phase add, clear the gate. The gate is raised before the next
// timestamp is drained, so an add arriving mid-process_bars_at takes effect
// at the following iteration.
func (c *SessionCoordinator) processPendingSymbols(ctx context.Context) {
	c.pendingMu.Lock()
	pending := c.pendingSymbols
	c.pendingSymbols = nil
	if len(pending) == 0 {
		c.pendingMu.Unlock()
		return
	}
	c.streamPaused = true
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		c.streamPaused = false
		c.pendingMu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return
	case <-time.After(pendingQuiescence):
	}

	histDays := 0
	if h := c.Config.SessionData.Historical; h != nil && h.Enabled {
		histDays = h.TrailingDays
	}

	reqs := make([]ProvisioningRequirements, 0, len(pending))
	for _, p := range pending {
		reqs = append(reqs, c.Executor.AnalyzeFull(
			OpMidSessionAdd, p.symbol, c.requirements,
			c.Config.SessionData.Indicators.Session,
			p.addedBy, histDays,
		))
	}

	results, err := c.Executor.ExecuteBatch(ctx, reqs)
	if err != nil {
		log.WithError(err).Error("mid-session batch failed")
	}
	for _, r := range results {
		if r.Err != nil {
			reason := "provisioning_failed"
			var verr *ValidationError
			if errors.As(r.Err, &verr) {
				reason = verr.Reason
			}
			c.EmitSymbolFailed(r.Requirements.Symbol, reason)
			continue
		}
		c.EmitSymbolAdded(r.Requirements.Symbol, string(r.Requirements.AddedBy))
	}
}
