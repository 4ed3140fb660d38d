package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
)

// Metric selects which series the activity charts show.
type Metric string

const (
	MetricAll         Metric = "all"
	MetricView        Metric = "view"
	MetricAddToCart   Metric = "addtocart"
	MetricTransaction Metric = "transaction"
)

// ParseMetric accepts an empty value as MetricAll.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "", MetricAll:
		return MetricAll, nil
	case MetricView, MetricAddToCart, MetricTransaction:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Includes reports whether series m is displayed under the selection.
func (m Metric) Includes(series Metric) bool {
	return m == MetricAll || m == series
}

// DateBounds returns the first and last day of the series. ok is false when
// days is empty.
func DateBounds(days []dataset.DailyKPI) (first, last time.Time, ok bool) {
	if len(days) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = days[0].Date, days[0].Date
	for _, d := range days[1:] {
		if d.Date.Before(first) {
			first = d.Date
		}
		if d.Date.After(last) {
			last = d.Date
		}
	}
	return first, last, true
}

// FilterDaily keeps the days within [from, to]. A zero bound is open.
func FilterDaily(days []dataset.DailyKPI, from, to time.Time) []dataset.DailyKPI {
	out := make([]dataset.DailyKPI, 0, len(days))
	for _, d := range days {
		if !from.IsZero() && d.Date.Before(from) {
			continue
		}
		if !to.IsZero() && d.Date.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// DailyTotals sums the filtered series.
func DailyTotals(days []dataset.DailyKPI) (views, carts, purchases int64) {
	for _, d := range days {
		views += d.View
		carts += d.AddToCart
		purchases += d.Transaction
	}
	return views, carts, purchases
}

// PeakHour returns the hour with the most views; the earliest hour wins ties.
func PeakHour(hours []dataset.HourlyActivity) (dataset.HourlyActivity, bool) {
	if len(hours) == 0 {
		return dataset.HourlyActivity{}, false
	}
	peak := hours[0]
	for _, h := range hours[1:] {
		if h.View > peak.View || (h.View == peak.View && h.Hour < peak.Hour) {
			peak = h
		}
	}
	return peak, true
}

// BusiestHours returns the n hours with the most views, in clock order.
func BusiestHours(hours []dataset.HourlyActivity, n int) []int {
	return rankHours(hours, n, func(a, b dataset.HourlyActivity) bool { return a.View > b.View })
}

// QuietestHours returns the n hours with the fewest views, in clock order.
func QuietestHours(hours []dataset.HourlyActivity, n int) []int {
	return rankHours(hours, n, func(a, b dataset.HourlyActivity) bool { return a.View < b.View })
}

func rankHours(hours []dataset.HourlyActivity, n int, better func(a, b dataset.HourlyActivity) bool) []int {
	ranked := append([]dataset.HourlyActivity(nil), hours...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if better(ranked[i], ranked[j]) {
			return true
		}
		if better(ranked[j], ranked[i]) {
			return false
		}
		return ranked[i].Hour < ranked[j].Hour
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]int, 0, n)
	for _, h := range ranked[:n] {
		out = append(out, h.Hour)
	}
	sort.Ints(out)
	return out
}
