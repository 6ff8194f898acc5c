package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yohannes916/mismartera/pkg/types"
)

// File layout rules. Sub-daily intervals (seconds, minutes) go to daily
// files, daily+ intervals (days, weeks) to yearly files, quotes to daily
// files:
//
//	{root}/{exchange_group}/bars/{interval}/{SYMBOL}/{YYYY}/{MM}/{DD}.parquet
//	{root}/{exchange_group}/bars/{interval}/{SYMBOL}/{YYYY}.parquet
//	{root}/{exchange_group}/quotes/{SYMBOL}/{YYYY}/{MM}/{DD}.parquet
//
// Day grouping uses the exchange-local day, so one trading day maps to one
// file even when the session crosses a UTC midnight. Callers pass day
// values already in the exchange timezone.

// BarPath returns the file a bar belongs to given its exchange-local day.
func BarPath(root, exchangeGroup string, interval types.Interval, symbol string, day time.Time) string {
	symbol = strings.ToUpper(symbol)
	base := filepath.Join(root, exchangeGroup, "bars", interval.String(), symbol)

	if interval.IsSubDaily() {
		return filepath.Join(base,
			fmt.Sprintf("%04d", day.Year()),
			fmt.Sprintf("%02d", int(day.Month())),
			fmt.Sprintf("%02d.parquet", day.Day()))
	}

	return filepath.Join(base, fmt.Sprintf("%04d.parquet", day.Year()))
}

// QuotePath returns the daily quote file for the exchange-local day.
func QuotePath(root, exchangeGroup, symbol string, day time.Time) string {
	symbol = strings.ToUpper(symbol)
	return filepath.Join(root, exchangeGroup, "quotes", symbol,
		fmt.Sprintf("%04d", day.Year()),
		fmt.Sprintf("%02d", int(day.Month())),
		fmt.Sprintf("%02d.parquet", day.Day()))
}
