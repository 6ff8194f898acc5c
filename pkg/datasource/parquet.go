package datasource

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yohannes916/mismartera/pkg/storage"
	"github.com/yohannes916/mismartera/pkg/types"
)

var log = logrus.WithFields(logrus.Fields{
	"component": "datasource",
})

// ParquetSource serves bars from the Parquet layout. Historical loads read
// straight through the store; StreamBars replays the current day's stored
// bars onto a channel, paced by a rate limiter, which is enough to drive a
// paper-live session from recorded data.
type ParquetSource struct {
	store *storage.Store
	time  types.TimeService

	// ReplayRate paces StreamBars emission; nil means as fast as possible.
	ReplayRate *rate.Limiter
}

var _ types.DataSource = (*ParquetSource)(nil)

func NewParquetSource(store *storage.Store, ts types.TimeService) *ParquetSource {
	return &ParquetSource{
		store:      store,
		time:       ts,
		ReplayRate: rate.NewLimiter(rate.Every(10*time.Millisecond), 1),
	}
}

func (p *ParquetSource) LoadHistoricalBars(ctx context.Context, symbol string, interval types.Interval, startDate, endDate time.Time) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.store.ReadBars(interval, symbol, startDate, endDate)
}

func (p *ParquetSource) ReadBars(interval types.Interval, symbol string, startDate, endDate time.Time) ([]types.Bar, error) {
	return p.store.ReadBars(interval, symbol, startDate, endDate)
}

func (p *ParquetSource) WriteBars(bars []types.Bar, interval types.Interval, symbol string) error {
	return p.store.WriteBars(bars, interval, symbol)
}

func (p *ParquetSource) HasData(symbol string, interval types.Interval, startDate, endDate time.Time) bool {
	return p.store.HasData(symbol, interval, startDate, endDate)
}

type replayHandle struct {
	c      chan types.SymbolBar
	cancel context.CancelFunc
}

func (h *replayHandle) C() <-chan types.SymbolBar { return h.c }

func (h *replayHandle) Close() error {
	h.cancel()
	return nil
}

// StreamBars replays the session date's stored bars for every subscribed
// bar channel in timestamp order. Quote subscriptions are not replayed.
func (p *ParquetSource) StreamBars(ctx context.Context, subscriptions []types.Subscription) (types.StreamHandle, error) {
	ctx, cancel := context.WithCancel(ctx)
	h := &replayHandle{
		c:      make(chan types.SymbolBar, 256),
		cancel: cancel,
	}

	day := p.time.Now()
	var all []types.SymbolBar
	for _, sub := range subscriptions {
		if sub.Channel != types.BarChannel {
			log.Warnf("replay stream ignores %s subscription for %s", sub.Channel, sub.Symbol)
			continue
		}
		bars, err := p.store.ReadBars(sub.Interval, sub.Symbol, day, day)
		if err != nil {
			cancel()
			return nil, err
		}
		for _, b := range bars {
			all = append(all, types.SymbolBar{Symbol: sub.Symbol, Interval: sub.Interval, Bar: b})
		}
	}
	sortSymbolBars(all)

	go func() {
		defer close(h.c)
		for _, sb := range all {
			if p.ReplayRate != nil {
				if err := p.ReplayRate.Wait(ctx); err != nil {
					return
				}
			}
			select {
			case h.c <- sb:
			case <-ctx.Done():
				return
			}
		}
		log.Infof("replay stream drained: %d bars", len(all))
	}()

	return h, nil
}

func sortSymbolBars(bars []types.SymbolBar) {
	// insertion sort keeps equal timestamps in input order; replay volumes
	// are one day per stream so this stays cheap
	for i := 1; i < len(bars); i++ {
		for j := i; j > 0 && bars[j].Bar.Timestamp.Before(bars[j-1].Bar.Timestamp); j-- {
			bars[j], bars[j-1] = bars[j-1], bars[j]
		}
	}
}
