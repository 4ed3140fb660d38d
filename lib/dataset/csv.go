package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

var errNoRows = errors.New("no data rows")

// record gives named access to the fields of one CSV line.
type record struct {
	cols   map[string]int
	fields []string
	line   int
}

func (r record) str(col string) string {
	return strings.TrimSpace(r.fields[r.cols[col]])
}

// int64 accepts plain integers and integral floats ("1234.0"), which pandas
// writes for count columns that went through a float dtype.
func (r record) int64(col string) (int64, error) {
	raw := r.str(col)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("line %d: column %s: invalid integer %q", r.line, col, raw)
	}
	return int64(f), nil
}

func (r record) count(col string) (int64, error) {
	n, err := r.int64(col)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("line %d: column %s: negative count %d", r.line, col, n)
	}
	return n, nil
}

func (r record) float(col string) (float64, error) {
	raw := r.str(col)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("line %d: column %s: invalid number %q", r.line, col, raw)
	}
	return f, nil
}

// scanCSV streams r, checks the header holds every required column and calls
// fn for each data row. It returns errNoRows when the file has a header only.
func scanCSV(r io.Reader, required []string, fn func(rec record) error) error {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty file: missing header")
		}
		return fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := cols[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	rows := 0
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := reader.FieldPos(0)
		rows++
		if err := fn(record{cols: cols, fields: fields, line: line}); err != nil {
			return err
		}
	}
	if rows == 0 {
		return errNoRows
	}
	return nil
}

// ParseKPISummary reads kpis_summary.csv, which holds exactly one row.
func ParseKPISummary(r io.Reader) (*KPISummary, error) {
	var summary *KPISummary
	err := scanCSV(r, []string{
		"total_events", "total_visitors", "total_transactions", "total_views",
		"total_addtocart", "conversion_rate_view_to_purchase", "conversion_rate_cart_to_purchase",
	}, func(rec record) error {
		if summary != nil {
			return fmt.Errorf("line %d: expected a single summary row", rec.line)
		}
		var k KPISummary
		var err error
		if k.TotalEvents, err = rec.count("total_events"); err != nil {
			return err
		}
		if k.TotalVisitors, err = rec.count("total_visitors"); err != nil {
			return err
		}
		if k.TotalTransactions, err = rec.count("total_transactions"); err != nil {
			return err
		}
		if k.TotalViews, err = rec.count("total_views"); err != nil {
			return err
		}
		if k.TotalAddToCart, err = rec.count("total_addtocart"); err != nil {
			return err
		}
		if k.ConversionRateViewToPurchase, err = rec.float("conversion_rate_view_to_purchase"); err != nil {
			return err
		}
		if k.ConversionRateCartToPurchase, err = rec.float("conversion_rate_cart_to_purchase"); err != nil {
			return err
		}
		summary = &k
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func parseDay(raw string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// ParseDailyKPIs reads daily_kpis.csv. Dates must be unique; rows are returned
// in date order.
func ParseDailyKPIs(r io.Reader) ([]DailyKPI, error) {
	var days []DailyKPI
	seen := make(map[time.Time]int)
	err := scanCSV(r, []string{"date", "view", "addtocart", "transaction"}, func(rec record) error {
		date, err := parseDay(rec.str("date"))
		if err != nil {
			return fmt.Errorf("line %d: %w", rec.line, err)
		}
		if prev, dup := seen[date]; dup {
			return fmt.Errorf("line %d: duplicate date %s (first seen on line %d)", rec.line, date.Format("2006-01-02"), prev)
		}
		seen[date] = rec.line

		d := DailyKPI{Date: date}
		if d.View, err = rec.count("view"); err != nil {
			return err
		}
		if d.AddToCart, err = rec.count("addtocart"); err != nil {
			return err
		}
		if d.Transaction, err = rec.count("transaction"); err != nil {
			return err
		}
		days = append(days, d)
		return nil
	})
	if err != nil && !errors.Is(err, errNoRows) {
		return nil, err
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

// ParseHourly reads hourly_analysis.csv. Every hour 0..23 must appear once.
func ParseHourly(r io.Reader) ([]HourlyActivity, error) {
	var hours [24]*HourlyActivity
	err := scanCSV(r, []string{"hour", "view", "addtocart", "transaction"}, func(rec record) error {
		h, err := rec.int64("hour")
		if err != nil {
			return err
		}
		if h < 0 || h > 23 {
			return fmt.Errorf("line %d: hour %d out of range 0-23", rec.line, h)
		}
		if hours[h] != nil {
			return fmt.Errorf("line %d: duplicate hour %d", rec.line, h)
		}

		a := HourlyActivity{Hour: int(h)}
		if a.View, err = rec.count("view"); err != nil {
			return err
		}
		if a.AddToCart, err = rec.count("addtocart"); err != nil {
			return err
		}
		if a.Transaction, err = rec.count("transaction"); err != nil {
			return err
		}
		hours[h] = &a
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]HourlyActivity, 0, len(hours))
	for h, a := range hours {
		if a == nil {
			return nil, fmt.Errorf("missing hour %d", h)
		}
		out = append(out, *a)
	}
	return out, nil
}

// ParseProducts reads top_products.csv. Item ids must be unique.
func ParseProducts(r io.Reader) ([]ProductStat, error) {
	var products []ProductStat
	seen := make(map[int64]struct{})
	err := scanCSV(r, []string{"itemid", "views", "purchases", "conversion_rate"}, func(rec record) error {
		id, err := rec.int64("itemid")
		if err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("line %d: duplicate itemid %d", rec.line, id)
		}
		seen[id] = struct{}{}

		p := ProductStat{ItemID: id}
		if p.Views, err = rec.count("views"); err != nil {
			return err
		}
		if p.Purchases, err = rec.count("purchases"); err != nil {
			return err
		}
		if p.ConversionRate, err = rec.float("conversion_rate"); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	if err != nil && !errors.Is(err, errNoRows) {
		return nil, err
	}
	return products, nil
}

// ParseABTests reads ab_tests_results.csv.
func ParseABTests(r io.Reader) ([]ABTestResult, error) {
	var tests []ABTestResult
	err := scanCSV(r, []string{
		"Test", "Métrique", "Groupe_A", "Groupe_B", "Amélioration", "P_value", "Significatif", "Recommandation",
	}, func(rec record) error {
		t := ABTestResult{
			Test:           rec.str("Test"),
			Metric:         rec.str("Métrique"),
			GroupA:         rec.str("Groupe_A"),
			GroupB:         rec.str("Groupe_B"),
			Improvement:    rec.str("Amélioration"),
			PValue:         rec.str("P_value"),
			Recommendation: rec.str("Recommandation"),
		}
		var err error
		if t.ImprovementPct, err = ParseImprovement(t.Improvement); err != nil {
			return fmt.Errorf("line %d: %w", rec.line, err)
		}
		if t.Significant, err = ParseSignificance(rec.str("Significatif")); err != nil {
			return fmt.Errorf("line %d: %w", rec.line, err)
		}
		tests = append(tests, t)
		return nil
	})
	if err != nil && !errors.Is(err, errNoRows) {
		return nil, err
	}
	return tests, nil
}

// ParseEvents reads events_for_tableau.csv. Extra columns are ignored.
func ParseEvents(r io.Reader) ([]Event, error) {
	var events []Event
	err := scanCSV(r, []string{"visitorid", "itemid", "event"}, func(rec record) error {
		var e Event
		var err error
		if e.VisitorID, err = rec.int64("visitorid"); err != nil {
			return err
		}
		if e.ItemID, err = rec.int64("itemid"); err != nil {
			return err
		}
		if e.Type, err = ParseEventType(rec.str("event")); err != nil {
			return fmt.Errorf("line %d: %w", rec.line, err)
		}
		events = append(events, e)
		return nil
	})
	if err != nil && !errors.Is(err, errNoRows) {
		return nil, err
	}
	return events, nil
}
