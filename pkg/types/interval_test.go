package types

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseInterval(t *testing.T) {
	cases := []struct {
		input   string
		wantErr bool
	}{
		{input: "1m"},
		{input: "5m"},
		{input: "30s"},
		{input: "1d"},
		{input: "52w"},
		{input: "quotes"},
		{input: "1h", wantErr: true},
		{input: "60h", wantErr: true},
		{input: "0m", wantErr: true},
		{input: "m", wantErr: true},
		{input: "", wantErr: true},
		{input: "5x", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			parsed, err := ParseInterval(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInterval))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.input, parsed.String())
		})
	}
}

func TestIntervalHourlyHint(t *testing.T) {
	_, err := ParseInterval("1h")
	assert.Contains(t, err.Error(), "use minute intervals (60m, 120m, ...)")
}

func TestIntervalSeconds(t *testing.T) {
	assert.Equal(t, 1, Interval1s.Seconds())
	assert.Equal(t, 60, Interval1m.Seconds())
	assert.Equal(t, 300, Interval5m.Seconds())
	assert.Equal(t, 86400, Interval1d.Seconds())
	assert.Equal(t, 604800, Interval1w.Seconds())
	assert.Equal(t, 31449600, Interval("52w").Seconds())
}

func TestIntervalIsBase(t *testing.T) {
	assert.True(t, Interval1s.IsBase())
	assert.True(t, Interval1m.IsBase())
	assert.True(t, Interval1d.IsBase())
	assert.True(t, Interval1w.IsBase())
	assert.False(t, Interval5m.IsBase())
	assert.False(t, IntervalQuotes.IsBase())
}

func TestIntervalRequiredBase(t *testing.T) {
	assert.Equal(t, Interval1s, Interval("30s").RequiredBase())
	assert.Equal(t, Interval1m, Interval5m.RequiredBase())
	assert.Equal(t, Interval1d, Interval("5d").RequiredBase())
	assert.Equal(t, Interval1w, Interval("52w").RequiredBase())
	assert.Equal(t, Interval1d, Interval1d.RequiredBase())
}

func TestIntervalDerivableFrom(t *testing.T) {
	assert.True(t, Interval5m.DerivableFrom(Interval1m))
	assert.True(t, Interval1d.DerivableFrom(Interval1m))
	assert.True(t, Interval1w.DerivableFrom(Interval1d))
	assert.True(t, Interval("2w").DerivableFrom(Interval1w))
	assert.False(t, Interval("30s").DerivableFrom(Interval1m))
	assert.False(t, Interval1m.DerivableFrom(Interval1d))
	assert.False(t, Interval1m.DerivableFrom(Interval1m))
}

func TestMinBase(t *testing.T) {
	assert.Equal(t, Interval1m, MinBase(Interval1m, Interval1d))
	assert.Equal(t, Interval1s, MinBase(Interval1d, Interval1s))
	assert.Equal(t, Interval1w, MinBase("", Interval1w))
}
