package timeservice

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/yohannes916/mismartera/pkg/types"
)

// exchangeGroups maps a storage exchange group to its timezone.
var exchangeGroups = map[string]string{
	"US_EQUITY": "America/New_York",
	"EU_EQUITY": "Europe/London",
	"JP_EQUITY": "Asia/Tokyo",
}

// LocationForGroup resolves the timezone an exchange group implies.
func LocationForGroup(group string) (*time.Location, error) {
	name, ok := exchangeGroups[group]
	if !ok {
		return nil, errors.Errorf("unknown exchange group %q", group)
	}
	return time.LoadLocation(name)
}

// Config describes one exchange calendar.
type Config struct {
	Location *time.Location

	// regular session, exchange-local
	OpenHour, OpenMinute   int
	CloseHour, CloseMinute int

	// early-close days close at this time instead
	EarlyCloseHour, EarlyCloseMinute int

	Holidays    []string // "2006-01-02"
	EarlyCloses []string
}

// USEquityConfig is the default 09:30-16:00 New York calendar.
func USEquityConfig(loc *time.Location) Config {
	return Config{
		Location:         loc,
		OpenHour:         9,
		OpenMinute:       30,
		CloseHour:        16,
		EarlyCloseHour:   13,
		EarlyCloseMinute: 0,
	}
}

// Service implements types.TimeService over a weekday calendar with holiday
// and early-close lists. In virtual mode the clock only moves through
// SetVirtualTime; otherwise Now follows the wall clock in the exchange
// timezone.
type Service struct {
	cfg         Config
	holidays    map[string]struct{}
	earlyCloses map[string]struct{}

	mu      sync.RWMutex
	virtual bool
	now     time.Time
}

var _ types.TimeService = (*Service)(nil)

func New(cfg Config) *Service {
	s := &Service{
		cfg:         cfg,
		holidays:    make(map[string]struct{}, len(cfg.Holidays)),
		earlyCloses: make(map[string]struct{}, len(cfg.EarlyCloses)),
	}
	for _, d := range cfg.Holidays {
		s.holidays[d] = struct{}{}
	}
	for _, d := range cfg.EarlyCloses {
		s.earlyCloses[d] = struct{}{}
	}
	return s
}

// NewVirtual returns a Service in virtual-clock mode starting at start.
func NewVirtual(cfg Config, start time.Time) *Service {
	s := New(cfg)
	s.virtual = true
	s.now = start.In(cfg.Location)
	return s
}

func (s *Service) Now() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.virtual {
		return s.now
	}
	return time.Now().In(s.cfg.Location)
}

func (s *Service) SetVirtualTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.virtual {
		return
	}
	s.now = t.In(s.cfg.Location)
}

func (s *Service) dateKey(date time.Time) string {
	return date.In(s.cfg.Location).Format("2006-01-02")
}

func (s *Service) IsTradingDay(date time.Time) bool {
	d := date.In(s.cfg.Location)
	if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		return false
	}
	_, holiday := s.holidays[s.dateKey(d)]
	return !holiday
}

func (s *Service) GetTradingSession(date time.Time) (types.TradingSession, bool) {
	d := date.In(s.cfg.Location)
	open, close, ok := s.MarketHours(d)
	if !ok {
		return types.TradingSession{}, false
	}

	_, early := s.earlyCloses[s.dateKey(d)]
	return types.TradingSession{
		Date:         time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.cfg.Location),
		RegularOpen:  open,
		RegularClose: close,
		IsEarlyClose: early,
	}, true
}

func (s *Service) MarketHours(date time.Time) (open, close time.Time, ok bool) {
	d := date.In(s.cfg.Location)
	if !s.IsTradingDay(d) {
		return open, close, false
	}

	open = time.Date(d.Year(), d.Month(), d.Day(), s.cfg.OpenHour, s.cfg.OpenMinute, 0, 0, s.cfg.Location)
	if _, early := s.earlyCloses[s.dateKey(d)]; early {
		close = time.Date(d.Year(), d.Month(), d.Day(), s.cfg.EarlyCloseHour, s.cfg.EarlyCloseMinute, 0, 0, s.cfg.Location)
	} else {
		close = time.Date(d.Year(), d.Month(), d.Day(), s.cfg.CloseHour, s.cfg.CloseMinute, 0, 0, s.cfg.Location)
	}
	return open, close, true
}

func (s *Service) CountTradingDays(a, b time.Time) int {
	start := a.In(s.cfg.Location)
	end := b.In(s.cfg.Location)
	if end.Before(start) {
		return 0
	}

	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.IsTradingDay(d) {
			count++
		}
	}
	return count
}

func (s *Service) NextTradingDate(date time.Time) time.Time {
	d := date.In(s.cfg.Location).AddDate(0, 0, 1)
	for !s.IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.cfg.Location)
}

func (s *Service) ExchangeTimezone() *time.Location {
	return s.cfg.Location
}
