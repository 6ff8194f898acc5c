package datasource

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/yohannes916/mismartera/pkg/types"
)

// BarProvider is a remote bar feed the sync service backfills from.
type BarProvider interface {
	FetchBars(ctx context.Context, symbol string, interval types.Interval, startDate, endDate time.Time) ([]types.Bar, error)
}

// SyncService backfills the local Parquet store from a provider: find the
// last stored bar, fetch forward from there, write through the layout.
type SyncService struct {
	Provider BarProvider
	Store    types.DataSource
}

// SyncBars backfills one (symbol, interval) up to endDate. Provider fetches
// are retried with exponential backoff; a permanently failing fetch aborts
// the sync for this symbol only.
func (s *SyncService) SyncBars(ctx context.Context, symbol string, interval types.Interval, startDate, endDate time.Time) error {
	last, err := s.lastStoredBar(symbol, interval, startDate, endDate)
	if err != nil {
		return err
	}

	since := startDate
	if last != nil {
		// resume from the day after the last stored bar
		lt := last.Timestamp
		since = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, lt.Location()).AddDate(0, 0, 1)
		logrus.Infof("found stored bars for %s %s, resuming sync from %s", symbol, interval, since.Format("2006-01-02"))
	}
	if since.After(endDate) {
		return nil
	}

	var bars []types.Bar
	fetch := func() error {
		var ferr error
		bars, ferr = s.Provider.FetchBars(ctx, symbol, interval, since, endDate)
		return ferr
	}
	if err := backoff.Retry(fetch, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	logrus.Infof("syncing %d bars for %s %s", len(bars), symbol, interval)
	return s.Store.WriteBars(bars, interval, symbol)
}

func (s *SyncService) lastStoredBar(symbol string, interval types.Interval, startDate, endDate time.Time) (*types.Bar, error) {
	if !s.Store.HasData(symbol, interval, startDate, endDate) {
		return nil, nil
	}

	bars, err := s.Store.ReadBars(interval, symbol, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, nil
	}
	last := bars[len(bars)-1]
	return &last, nil
}
