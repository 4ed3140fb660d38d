// Package dataset loads the CSV artifacts written by the analysis notebooks.
package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Artifact names a CSV file under the processed data directory.
type Artifact string

const (
	ArtifactKPIs     Artifact = "kpis_summary.csv"
	ArtifactDaily    Artifact = "daily_kpis.csv"
	ArtifactHourly   Artifact = "hourly_analysis.csv"
	ArtifactProducts Artifact = "top_products.csv"
	ArtifactABTests  Artifact = "ab_tests_results.csv"
	ArtifactEvents   Artifact = "events_for_tableau.csv"
)

// Artifacts lists every artifact the dashboard reads.
var Artifacts = []Artifact{
	ArtifactKPIs,
	ArtifactDaily,
	ArtifactHourly,
	ArtifactProducts,
	ArtifactABTests,
	ArtifactEvents,
}

// KPISummary holds the global totals. Conversion rates are percentages.
type KPISummary struct {
	TotalEvents                  int64   `json:"total_events"`
	TotalVisitors                int64   `json:"total_visitors"`
	TotalTransactions            int64   `json:"total_transactions"`
	TotalViews                   int64   `json:"total_views"`
	TotalAddToCart               int64   `json:"total_addtocart"`
	ConversionRateViewToPurchase float64 `json:"conversion_rate_view_to_purchase"`
	ConversionRateCartToPurchase float64 `json:"conversion_rate_cart_to_purchase"`
}

type DailyKPI struct {
	Date        time.Time
	View        int64
	AddToCart   int64
	Transaction int64
}

type HourlyActivity struct {
	Hour        int
	View        int64
	AddToCart   int64
	Transaction int64
}

type ProductStat struct {
	ItemID         int64
	Views          int64
	Purchases      int64
	ConversionRate float64
}

// ABTestResult is one experiment row. Column names in the file are French.
type ABTestResult struct {
	Test           string
	Metric         string
	GroupA         string
	GroupB         string
	Improvement    string
	ImprovementPct float64
	PValue         string
	Significant    bool
	Recommendation string
}

// Improved reports whether variant B beat variant A.
func (r ABTestResult) Improved() bool {
	return r.ImprovementPct > 0
}

// EventType is one of the three tracked clickstream actions.
type EventType uint8

const (
	EventView EventType = iota + 1
	EventAddToCart
	EventTransaction
)

func (e EventType) String() string {
	switch e {
	case EventView:
		return "view"
	case EventAddToCart:
		return "addtocart"
	case EventTransaction:
		return "transaction"
	default:
		return "unknown"
	}
}

// ParseEventType accepts exactly the three literal values written by the
// notebooks.
func ParseEventType(s string) (EventType, error) {
	switch s {
	case "view":
		return EventView, nil
	case "addtocart":
		return EventAddToCart, nil
	case "transaction":
		return EventTransaction, nil
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

type Event struct {
	VisitorID int64
	ItemID    int64
	Type      EventType
}

// ParseImprovement converts a percentage string such as "+12.5%" to 12.5.
func ParseImprovement(s string) (float64, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, "%")
	v = strings.TrimPrefix(strings.TrimSpace(v), "+")
	v = strings.ReplaceAll(v, ",", ".")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q", s)
	}
	return f, nil
}

// ParseSignificance reads the yes/no flag of the A/B results. The notebooks
// write "✅ Oui" / "❌ Non"; plain yes/no and booleans are accepted too.
func ParseSignificance(s string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSpace(strings.TrimLeft(v, "✅❌\ufe0f "))
	switch v {
	case "oui", "yes", "true", "1":
		return true, nil
	case "non", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid significance flag %q", s)
}
