package storage

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/yohannes916/mismartera/pkg/types"
)

// barRow matches the on-disk parquet schema. Timestamps are stored as epoch
// milliseconds of the exchange-local instant; the reader re-attaches the
// exchange location so values round-trip without UTC conversion.
type barRow struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

type quoteRow struct {
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	BidPrice  float64 `parquet:"bid_price"`
	BidSize   int64   `parquet:"bid_size"`
	AskPrice  float64 `parquet:"ask_price"`
	AskSize   int64   `parquet:"ask_size"`
}

// Store reads and writes bars through the interval storage strategy.
type Store struct {
	Root          string
	ExchangeGroup string

	// Location is the exchange timezone attached to timestamps on read.
	Location *time.Location
}

func NewStore(root, exchangeGroup string, loc *time.Location) *Store {
	return &Store{Root: root, ExchangeGroup: exchangeGroup, Location: loc}
}

func (s *Store) barPath(interval types.Interval, symbol string, day time.Time) string {
	return BarPath(s.Root, s.ExchangeGroup, interval, symbol, day)
}

// WriteBars groups bars into their files (exchange-local day for sub-daily,
// year for daily+) and merges each group with existing file content,
// deduplicating on timestamp.
func (s *Store) WriteBars(bars []types.Bar, interval types.Interval, symbol string) error {
	groups := make(map[string][]types.Bar)
	for _, b := range bars {
		groups[s.barPath(interval, symbol, b.Timestamp)] = append(groups[s.barPath(interval, symbol, b.Timestamp)], b)
	}

	for path, group := range groups {
		if err := s.writeFile(path, group); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}
	return nil
}

func (s *Store) writeFile(path string, bars []types.Bar) error {
	existing, err := s.readFile(path)
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		return err
	}

	seen := make(map[int64]struct{}, len(existing))
	rows := make([]barRow, 0, len(existing)+len(bars))
	for _, b := range existing {
		seen[b.Timestamp.UnixMilli()] = struct{}{}
		rows = append(rows, toRow(b))
	}
	for _, b := range bars {
		ms := b.Timestamp.UnixMilli()
		if _, dup := seen[ms]; dup {
			continue
		}
		seen[ms] = struct{}{}
		rows = append(rows, toRow(b))
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// write-then-rename so readers never observe a half-written file
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, rows); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Store) readFile(path string) ([]types.Bar, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	rows, err := parquet.ReadFile[barRow](path)
	if err != nil {
		return nil, err
	}

	bars := make([]types.Bar, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, s.fromRow(r))
	}
	return bars, nil
}

func toRow(b types.Bar) barRow {
	return barRow{
		Timestamp: b.Timestamp.UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

func (s *Store) fromRow(r barRow) types.Bar {
	return types.Bar{
		Timestamp: time.UnixMilli(r.Timestamp).In(s.Location),
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
	}
}

// ReadBars loads bars for [startDate, endDate] inclusive (exchange-local
// dates) in timestamp order. Missing files are skipped: absent days are a
// quality concern, not a read error.
func (s *Store) ReadBars(interval types.Interval, symbol string, startDate, endDate time.Time) ([]types.Bar, error) {
	var out []types.Bar

	for _, path := range s.pathsInRange(interval, symbol, startDate, endDate) {
		bars, err := s.readFile(path)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				continue
			}
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		out = append(out, bars...)
	}

	// yearly files cover more than the requested window
	filtered := out[:0]
	dayEnd := endDate.AddDate(0, 0, 1)
	for _, b := range out {
		if b.Timestamp.Before(startDate) || !b.Timestamp.Before(dayEnd) {
			continue
		}
		filtered = append(filtered, b)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})
	return filtered, nil
}

func (s *Store) pathsInRange(interval types.Interval, symbol string, startDate, endDate time.Time) []string {
	var paths []string
	if interval.IsSubDaily() {
		for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
			paths = append(paths, s.barPath(interval, symbol, d))
		}
		return paths
	}

	for y := startDate.Year(); y <= endDate.Year(); y++ {
		paths = append(paths, s.barPath(interval, symbol, time.Date(y, 1, 1, 0, 0, 0, 0, s.Location)))
	}
	return paths
}

// HasData reports whether any bar file exists for the window.
func (s *Store) HasData(symbol string, interval types.Interval, startDate, endDate time.Time) bool {
	for _, path := range s.pathsInRange(interval, symbol, startDate, endDate) {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return false
}

// WriteQuotes stores quotes into their exchange-local daily files.
func (s *Store) WriteQuotes(quotes []types.Quote, symbol string) error {
	groups := make(map[string][]quoteRow)
	for _, q := range quotes {
		path := QuotePath(s.Root, s.ExchangeGroup, symbol, q.Timestamp)
		groups[path] = append(groups[path], quoteRow{
			Timestamp: q.Timestamp.UnixMilli(),
			BidPrice:  q.BidPrice,
			BidSize:   q.BidSize,
			AskPrice:  q.AskPrice,
			AskSize:   q.AskSize,
		})
	}

	for path, rows := range groups {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp < rows[j].Timestamp })
		if err := parquet.WriteFile(path, rows); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		log.Debugf("wrote %d quotes to %s", len(rows), path)
	}
	return nil
}
