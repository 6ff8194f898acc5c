package types

import (
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Interval is a canonical bar interval string such as "1m", "5m", "1d" or
// "52w". Hourly intervals are not part of the grammar; callers that want
// hours use minute multiples (60m, 120m, ...).
type Interval string

const (
	Interval1s Interval = "1s"
	Interval1m Interval = "1m"
	Interval5m Interval = "5m"
	Interval1d Interval = "1d"
	Interval1w Interval = "1w"

	// IntervalQuotes is a non-bar sentinel used for quote subscriptions.
	IntervalQuotes Interval = "quotes"
)

var intervalPattern = regexp.MustCompile(`^(\d+)([smdw])$`)

// ParseInterval validates s against the interval grammar and returns it as
// an Interval. The quotes sentinel passes through untouched.
func ParseInterval(s string) (Interval, error) {
	if s == string(IntervalQuotes) {
		return IntervalQuotes, nil
	}

	m := intervalPattern.FindStringSubmatch(s)
	if m == nil {
		if hourPattern.MatchString(s) {
			return "", errors.Wrapf(ErrInvalidInterval, "%q: use minute intervals (60m, 120m, ...)", s)
		}
		return "", errors.Wrapf(ErrInvalidInterval, "%q", s)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return "", errors.Wrapf(ErrInvalidInterval, "%q", s)
	}

	return Interval(s), nil
}

var hourPattern = regexp.MustCompile(`^\d+h$`)

func (i Interval) String() string { return string(i) }

// Count returns the numeric multiplier of the interval, e.g. 5 for "5m".
func (i Interval) Count() int {
	m := intervalPattern.FindStringSubmatch(string(i))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Unit returns the unit letter: 's', 'm', 'd' or 'w'. Zero for the quotes
// sentinel or malformed values.
func (i Interval) Unit() byte {
	m := intervalPattern.FindStringSubmatch(string(i))
	if m == nil {
		return 0
	}
	return m[2][0]
}

// Seconds returns the interval length in seconds.
func (i Interval) Seconds() int {
	n := i.Count()
	switch i.Unit() {
	case 's':
		return n
	case 'm':
		return n * 60
	case 'd':
		return n * 24 * 60 * 60
	case 'w':
		return n * 7 * 24 * 60 * 60
	}
	return 0
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i.Seconds()) * time.Second
}

// IsBase reports whether i is one of the streamable base intervals
// (1s, 1m, 1d, 1w).
func (i Interval) IsBase() bool {
	return i.Count() == 1 && i.Unit() != 0
}

// IsSubDaily reports whether the interval is below one day. Sub-daily
// intervals are stored in daily files, daily+ intervals in yearly files.
func (i Interval) IsSubDaily() bool {
	u := i.Unit()
	return u == 's' || u == 'm'
}

// RequiredBase returns the base interval that must be available for i to be
// served: Ns ← 1s, Nm ← 1m, Nd ← 1d, Nw ← 1w. A base interval is its own
// requirement; it may still be derived when a smaller base is streamed
// (1d aggregates from 1m, 1w from 1d).
func (i Interval) RequiredBase() Interval {
	switch i.Unit() {
	case 's':
		return Interval1s
	case 'm':
		return Interval1m
	case 'd':
		return Interval1d
	case 'w':
		return Interval1w
	}
	return ""
}

// DerivableFrom reports whether bars of interval i can be aggregated from
// bars of the given base interval.
func (i Interval) DerivableFrom(base Interval) bool {
	if i == base {
		return false
	}
	switch base {
	case Interval1s:
		return true
	case Interval1m:
		return i.Unit() != 's'
	case Interval1d:
		return i.Unit() == 'd' || i.Unit() == 'w'
	case Interval1w:
		return i.Unit() == 'w'
	}
	return false
}

// basePriority orders the streamable bases from smallest to largest.
var basePriority = map[Interval]int{
	Interval1s: 0,
	Interval1m: 1,
	Interval1d: 2,
	Interval1w: 3,
}

// MinBase returns the smaller of two base intervals by stream priority
// (1s < 1m < 1d < 1w).
func MinBase(a, b Interval) Interval {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if basePriority[a] <= basePriority[b] {
		return a
	}
	return b
}

