package analytics

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
)

func fixtures(t *testing.T) *dataset.Snapshot {
	t.Helper()
	store := dataset.NewStore("../dataset/testdata/processed", slog.New(slog.NewTextHandler(io.Discard, nil)))
	snap := store.Snapshot()
	require.Empty(t, snap.Errors)
	return snap
}

func itemIDs(products []dataset.ProductStat) []int64 {
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ItemID)
	}
	return ids
}

func TestConversionRate(t *testing.T) {
	require.Zero(t, ConversionRate(10, 0))
	require.InDelta(t, 50.0, ConversionRate(1, 2), 1e-9)
	require.Equal(t, 1.6, Round2(1.5954))
	require.Equal(t, -1.01, Round2(-1.006))
}

func TestVisitorConversion(t *testing.T) {
	cases := []struct {
		visitors, transactions int64
		want                   float64
	}{
		{1_000_000, 23_800, 2.38},
		{1_407_580, 22_457, 1.6},
		{3, 1, 33.33},
		{3, 2, 66.67},
		{8, 1, 12.5},
		{0, 0, 0},
		{0, 5, 0},
		{10, 0, 0},
	}
	for _, c := range cases {
		k := dataset.KPISummary{TotalVisitors: c.visitors, TotalTransactions: c.transactions}
		require.Equal(t, c.want, VisitorConversion(k), "%d/%d", c.transactions, c.visitors)
	}
}

func TestKPIFigures(t *testing.T) {
	snap := fixtures(t)
	k := *snap.KPIs

	require.Equal(t, 1.6, VisitorConversion(k))

	funnel := BuildFunnel(k)
	require.Len(t, funnel, 3)
	require.Equal(t, 100.0, funnel[0].PercentOfInitial)
	require.InDelta(t, 2.602, funnel[1].PercentOfPrev, 1e-3)
	require.InDelta(t, 32.39, funnel[2].PercentOfPrev, 1e-2)

	shares := ActionShares(k)
	var total float64
	for _, s := range shares {
		total += s.Percent
	}
	require.InDelta(t, 100, total, 1e-9)

	diags := Diagnose(k)
	require.Len(t, diags, 3)
	require.Equal(t, LevelOK, diags[0].Level)
	require.Equal(t, LevelWarn, diags[1].Level)
	require.InDelta(t, 67.61, diags[1].Value, 1e-9)
	require.Equal(t, LevelOK, diags[2].Level)
	require.InDelta(t, 6.52, diags[2].Value, 1e-2)
}

func TestDiagnoseThresholds(t *testing.T) {
	diags := Diagnose(dataset.KPISummary{
		TotalVisitors:                1000,
		TotalAddToCart:               10,
		TotalTransactions:            5,
		ConversionRateViewToPurchase: 3.5,
		ConversionRateCartToPurchase: 50,
	})
	require.Equal(t, LevelWarn, diags[0].Level)
	require.Equal(t, LevelOK, diags[1].Level)
	require.Equal(t, LevelAlert, diags[2].Level)
	require.InDelta(t, 98.5, diags[2].Value, 1e-9)
}

func TestActivity(t *testing.T) {
	snap := fixtures(t)

	first, last, ok := DateBounds(snap.Daily)
	require.True(t, ok)
	require.Equal(t, time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC), first)
	require.Equal(t, time.Date(2015, 6, 5, 0, 0, 0, 0, time.UTC), last)

	_, _, ok = DateBounds(nil)
	require.False(t, ok)

	days := FilterDaily(snap.Daily, time.Date(2015, 6, 2, 0, 0, 0, 0, time.UTC), time.Date(2015, 6, 4, 0, 0, 0, 0, time.UTC))
	require.Len(t, days, 3, "bounds are inclusive")
	views, _, purchases := DailyTotals(days)
	require.Equal(t, int64(19250+20110+17420), views)
	require.Equal(t, int64(171+190+150), purchases)
	require.Len(t, FilterDaily(snap.Daily, time.Time{}, time.Time{}), 5)

	peak, ok := PeakHour(snap.Hourly)
	require.True(t, ok)
	require.Equal(t, 19, peak.Hour)
	require.Equal(t, []int{18, 19, 20}, BusiestHours(snap.Hourly, 3))
	require.Equal(t, []int{4, 5, 6}, QuietestHours(snap.Hourly, 3))
	require.Len(t, BusiestHours(snap.Hourly[:2], 3), 2)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("")
	require.NoError(t, err)
	require.Equal(t, MetricAll, m)
	require.True(t, m.Includes(MetricView))

	m, err = ParseMetric("transaction")
	require.NoError(t, err)
	require.False(t, m.Includes(MetricView))

	_, err = ParseMetric("clicks")
	require.Error(t, err)
}

func TestTopProducts(t *testing.T) {
	snap := fixtures(t)
	original := append([]dataset.ProductStat(nil), snap.Products...)

	require.Equal(t, []int64{187946, 461686, 5411, 370653, 257040}, itemIDs(TopProducts(snap.Products, SortByViews, 5)))
	require.Equal(t, []int64{461686, 219512, 257040, 370653, 309778}, itemIDs(TopProducts(snap.Products, SortByPurchases, 5)))
	require.Equal(t, []int64{461686, 309778, 219512, 257040, 370653}, itemIDs(TopProducts(snap.Products, SortByConversion, 5)))
	require.Len(t, TopProducts(snap.Products, SortByConversion, 20), 7, "zero-rate products are excluded")
	require.Len(t, TopProducts(snap.Products, SortByViews, 20), 8)

	require.Equal(t, original, snap.Products, "input is not reordered")

	_, err := ParseSortKey("price")
	require.Error(t, err)
}

func TestClassifyPerformance(t *testing.T) {
	require.Equal(t, TierExcellent, ClassifyPerformance(2))
	require.Equal(t, TierGood, ClassifyPerformance(1.99))
	require.Equal(t, TierGood, ClassifyPerformance(1))
	require.Equal(t, TierAverage, ClassifyPerformance(0.5))
	require.Equal(t, TierWeak, ClassifyPerformance(0.49))
	require.Equal(t, TierWeak, ClassifyPerformance(0))
}

func TestAnalyzePotential(t *testing.T) {
	pot := AnalyzePotential(fixtures(t).Products)

	require.Equal(t, 6, pot.Analyzed)
	require.Equal(t, map[PerformanceTier]int{TierExcellent: 1, TierGood: 1, TierAverage: 1, TierWeak: 3}, pot.TierCounts)
	require.Equal(t, 4, pot.LowRate)
	require.InDelta(t, 66.67, pot.LowRateShare, 1e-2)
	require.Equal(t, []int64{187946, 5411, 370653, 257040}, itemIDs(pot.Priority))

	empty := AnalyzePotential(nil)
	require.Zero(t, empty.Analyzed)
	require.Zero(t, empty.LowRateShare)
	require.Empty(t, empty.Priority)
}

func TestClassifySegment(t *testing.T) {
	require.Equal(t, SegmentBuyer, ClassifySegment(1, 0))
	require.Equal(t, SegmentBuyer, ClassifySegment(2, 3))
	require.Equal(t, SegmentCartAbandoner, ClassifySegment(0, 1))
	require.Equal(t, SegmentPassiveViewer, ClassifySegment(0, 0))
}

func TestSegments(t *testing.T) {
	profiles := ProfileVisitors(fixtures(t).Events)
	require.Len(t, profiles, 5)
	require.Equal(t, VisitorProfile{VisitorID: 1, Views: 2, AddToCart: 1, Purchases: 1, UniqueProducts: 2, Segment: SegmentBuyer}, profiles[0])
	require.Equal(t, SegmentCartAbandoner, profiles[4].Segment)

	summaries := SummarizeSegments(profiles)
	require.Len(t, summaries, 3)
	require.Equal(t, SegmentCartAbandoner, summaries[0].Segment)
	require.Equal(t, SegmentPassiveViewer, summaries[1].Segment)
	require.Equal(t, SegmentBuyer, summaries[2].Segment)

	abandon := summaries[0]
	require.Equal(t, 2, abandon.Visitors)
	require.InDelta(t, 40.0, abandon.Share, 1e-9)
	require.InDelta(t, 1.0, abandon.AvgViews, 1e-9)
	require.InDelta(t, 1.5, abandon.AvgAddToCart, 1e-9)
	require.InDelta(t, 1.5, abandon.AvgUniqueProducts, 1e-9)

	passive := summaries[1]
	require.InDelta(t, 2.0, passive.AvgViews, 1e-9)
	require.InDelta(t, 2.0, passive.AvgUniqueProducts, 1e-9)
	require.Zero(t, passive.AvgAddToCart)

	require.Empty(t, SummarizeSegments(nil))
}

func TestSummarizeTests(t *testing.T) {
	tests := fixtures(t).ABTests
	s := SummarizeTests(tests)
	require.Equal(t, 3, s.Total)
	require.Equal(t, 2, s.Significant)
	require.InDelta(t, 7.3667, s.MeanImprovement, 1e-4)
	require.True(t, tests[0].Improved())
	require.False(t, tests[2].Improved())

	require.Equal(t, TestSummary{}, SummarizeTests(nil))
}
