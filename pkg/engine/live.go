package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/yohannes916/mismartera/pkg/types"
)

// RunLive drives a live session: the queues are fed by the data source's
// stream, the clock follows wall time, and the same chronological drain
// applies without ever blocking on the past. A cron entry at the exchange
// close rolls the session into the next trading day.
func (c *SessionCoordinator) RunLive(ctx context.Context) error {
	if err := c.ValidateStreams(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	today := c.Time.Now()
	c.Data.SetSessionDate(today)
	if err := c.provisionConfigSymbols(ctx); err != nil {
		return err
	}

	subs := make([]types.Subscription, 0, len(c.Data.ActiveSymbols()))
	for _, symbol := range c.Data.ActiveSymbols() {
		subs = append(subs, types.Subscription{
			Channel:  types.BarChannel,
			Symbol:   symbol,
			Interval: c.requirements.BaseInterval,
		})
	}

	handle, err := c.Source.StreamBars(ctx, subs)
	if err != nil {
		return err
	}
	defer handle.Close()

	_, closeAt, ok := c.Time.MarketHours(today)
	if !ok {
		return fmt.Errorf("%s is not a trading day", today.Format("2006-01-02"))
	}

	sched := cron.New(cron.WithLocation(c.Time.ExchangeTimezone()))
	_, err = sched.AddFunc(fmt.Sprintf("%d %d * * 1-5", closeAt.Minute(), closeAt.Hour()), func() {
		c.EmitPhaseStart("session_end", c.Data.SessionDate())
		c.Data.DeactivateSession()
		c.Processor.Flush()
		c.finalQualityPass()
		next := c.Time.NextTradingDate(c.Data.SessionDate())
		c.Data.RollSession(next)
		c.EmitSessionEnd(c.Data.SessionDate())
	})
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	c.Data.ActivateSession()
	c.EmitSessionActivated()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Processor.Run(ctx) })
	g.Go(func() error { return c.Quality.Run(ctx) })

	// feeder: stream transport into the per-(symbol, interval) queues
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case sb, ok := <-handle.C():
				if !ok {
					return nil
				}
				c.queues.push(sb.Symbol, sb.Interval, sb.Bar)
			}
		}
	})

	// drain: same chronological loop, wall clock, never waits for the past
	g.Go(func() error {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-c.stopC:
				return nil
			default:
			}

			c.processPendingSymbols(ctx)

			t, ok := c.queues.earliestHead()
			if !ok {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(50 * time.Millisecond):
				}
				continue
			}

			processed := c.processBarsAt(t)
			c.checkLag(processed)
		}
	})

	return g.Wait()
}
