package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/analytics"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
)

// Action colours, in view, cart, purchase order.
const (
	colorView        = "#667eea"
	colorAddToCart   = "#f093fb"
	colorTransaction = "#4facfe"
)

var actionColors = opts.Colors{colorView, colorAddToCart, colorTransaction}

var segmentColors = opts.Colors{"#27ae60", "#f39c12", "#3498db"}

var tierColors = map[analytics.PerformanceTier]string{
	analytics.TierExcellent: "#27ae60",
	analytics.TierGood:      "#f39c12",
	analytics.TierAverage:   "#e67e22",
	analytics.TierWeak:      "#e74c3c",
}

// chartView is what a page template needs to mount one chart.
type chartView struct {
	ID      string
	Options map[string]interface{}
}

type echart interface {
	Validate()
	JSON() map[string]interface{}
}

// mount finalizes c and exports its options for echarts setOption.
func mount(id string, c echart) *chartView {
	c.Validate()
	return &chartView{ID: id, Options: c.JSON()}
}

func tooltip(trigger string) charts.GlobalOpts {
	return charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: trigger})
}

func funnelChart(stages []analytics.FunnelStage) *charts.Funnel {
	c := charts.NewFunnel()
	c.SetGlobalOptions(charts.WithColorsOpts(actionColors), tooltip("item"))

	data := make([]opts.FunnelData, 0, len(stages))
	for _, s := range stages {
		data = append(data, opts.FunnelData{Name: s.Label, Value: s.Count})
	}
	c.AddSeries("Parcours d'achat", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "inside", Formatter: "{b}\n{c}"}))
	return c
}

// sharesChart is the ring of action types.
func sharesChart(shares []analytics.Share) *charts.Pie {
	c := charts.NewPie()
	c.SetGlobalOptions(
		charts.WithColorsOpts(actionColors),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		tooltip("item"),
	)

	data := make([]opts.PieData, 0, len(shares))
	for _, s := range shares {
		data = append(data, opts.PieData{Name: s.Label, Value: s.Count})
	}
	c.AddSeries("Actions", data,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "75%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}\n{d}%"}))
	return c
}

type actionSeries struct {
	metric analytics.Metric
	label  string
	color  string
}

var actions = []actionSeries{
	{analytics.MetricView, "Consultations", colorView},
	{analytics.MetricAddToCart, "Ajouts panier", colorAddToCart},
	{analytics.MetricTransaction, "Achats", colorTransaction},
}

func actionCount(m analytics.Metric, view, addToCart, transaction int64) int64 {
	switch m {
	case analytics.MetricAddToCart:
		return addToCart
	case analytics.MetricTransaction:
		return transaction
	default:
		return view
	}
}

// dailyChart draws one line per action type selected by metric.
func dailyChart(days []dataset.DailyKPI, metric analytics.Metric) *charts.Line {
	c := charts.NewLine()
	c.SetGlobalOptions(
		tooltip("axis"),
		charts.WithYAxisOpts(opts.YAxis{Name: "Nombre d'actions"}),
	)

	labels := make([]string, 0, len(days))
	for _, d := range days {
		labels = append(labels, d.Date.Format("02/01/2006"))
	}
	c.SetXAxis(labels)

	for _, a := range actions {
		if !metric.Includes(a.metric) {
			continue
		}
		data := make([]opts.LineData, 0, len(days))
		for _, d := range days {
			data = append(data, opts.LineData{Value: actionCount(a.metric, d.View, d.AddToCart, d.Transaction)})
		}
		c.AddSeries(a.label, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: a.color}))
	}
	return c
}

// hourlyChart draws every action type by hour and marks the peak of views.
func hourlyChart(hours []dataset.HourlyActivity, peak dataset.HourlyActivity) *charts.Line {
	c := charts.NewLine()
	c.SetGlobalOptions(
		tooltip("axis"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Heure de la journée"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Nombre d'actions"}),
	)

	labels := make([]string, 0, len(hours))
	for _, h := range hours {
		labels = append(labels, strconv.Itoa(h.Hour)+"h")
	}
	c.SetXAxis(labels)

	for _, a := range actions {
		data := make([]opts.LineData, 0, len(hours))
		for _, h := range hours {
			data = append(data, opts.LineData{Value: actionCount(a.metric, h.View, h.AddToCart, h.Transaction)})
		}
		series := []charts.SeriesOpts{charts.WithItemStyleOpts(opts.ItemStyle{Color: a.color})}
		if a.metric == analytics.MetricView {
			series = append(series, charts.WithMarkPointNameTypeItemOpts(opts.MarkPointNameTypeItem{
				Name: fmt.Sprintf("Pic d'activité à %dh", peak.Hour),
				Type: "max",
			}))
		}
		c.AddSeries(a.label, data, series...)
	}
	return c
}

func productLabels(products []dataset.ProductStat) []string {
	labels := make([]string, 0, len(products))
	for _, p := range products {
		labels = append(labels, strconv.FormatInt(p.ItemID, 10))
	}
	return labels
}

// rankingChart is a horizontal bar of the ranked products under key.
func rankingChart(products []dataset.ProductStat, key analytics.SortKey) *charts.Bar {
	c := charts.NewBar()
	c.SetGlobalOptions(
		tooltip("axis"),
		charts.WithXAxisOpts(opts.XAxis{Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Identifiant Produit", Type: "category"}),
	)
	c.SetXAxis(productLabels(products))

	data := make([]opts.BarData, 0, len(products))
	for _, p := range products {
		var v interface{}
		switch key {
		case analytics.SortByPurchases:
			v = p.Purchases
		case analytics.SortByConversion:
			v = analytics.Round2(p.ConversionRate)
		default:
			v = p.Views
		}
		data = append(data, opts.BarData{Value: v})
	}
	c.AddSeries(key.Label(), data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorView}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}))
	c.XYReversal()
	return c
}

func tierChart(tiers []tierRow) *charts.Bar {
	c := charts.NewBar()
	c.SetGlobalOptions(
		tooltip("item"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Nombre de produits", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category"}),
	)

	labels := make([]string, 0, len(tiers))
	data := make([]opts.BarData, 0, len(tiers))
	for _, t := range tiers {
		labels = append(labels, t.Tier.String())
		data = append(data, opts.BarData{Value: t.Count, ItemStyle: &opts.ItemStyle{Color: tierColors[t.Tier]}})
	}
	c.SetXAxis(labels)
	c.AddSeries("Produits", data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right", Formatter: "{c} produits"}))
	c.XYReversal()
	return c
}

// priorityChart puts views on the left axis and the conversion rate on the
// right one.
func priorityChart(products []dataset.ProductStat) *charts.Bar {
	labels := productLabels(products)

	c := charts.NewBar()
	c.SetGlobalOptions(
		tooltip("axis"),
		charts.WithXAxisOpts(opts.XAxis{Name: "Identifiant Produit"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Nombre de consultations"}),
	)
	c.ExtendYAxis(opts.YAxis{Name: "Taux de conversion (%)", Position: "right"})
	c.SetXAxis(labels)

	views := make([]opts.BarData, 0, len(products))
	rates := make([]opts.LineData, 0, len(products))
	for _, p := range products {
		views = append(views, opts.BarData{Value: p.Views})
		rates = append(rates, opts.LineData{Value: analytics.Round2(p.ConversionRate)})
	}
	c.AddSeries("Consultations", views, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#3498db"}))

	rate := charts.NewLine()
	rate.SetXAxis(labels)
	rate.AddSeries("Taux de conversion", rates,
		charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#e74c3c"}))
	c.Overlap(rate)
	return c
}

// segmentChart is the donut of visitor segments.
func segmentChart(segments []analytics.SegmentSummary) *charts.Pie {
	c := charts.NewPie()
	c.SetGlobalOptions(charts.WithColorsOpts(segmentColors), tooltip("item"))

	data := make([]opts.PieData, 0, len(segments))
	for _, s := range segments {
		data = append(data, opts.PieData{Name: s.Segment.String(), Value: s.Visitors})
	}
	c.AddSeries("Visiteurs", data,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"50%", "75%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{d}%"}))
	return c
}

// behaviourChart groups the mean actions per visitor by segment.
func behaviourChart(segments []analytics.SegmentSummary) *charts.Bar {
	c := charts.NewBar()
	c.SetGlobalOptions(
		charts.WithColorsOpts(actionColors),
		tooltip("axis"),
		charts.WithYAxisOpts(opts.YAxis{Name: "Moyenne par visiteur"}),
	)

	labels := make([]string, 0, len(segments))
	for _, s := range segments {
		labels = append(labels, s.Segment.String())
	}
	c.SetXAxis(labels)

	means := []struct {
		label string
		value func(analytics.SegmentSummary) float64
	}{
		{"Consultations", func(s analytics.SegmentSummary) float64 { return s.AvgViews }},
		{"Ajouts panier", func(s analytics.SegmentSummary) float64 { return s.AvgAddToCart }},
		{"Achats", func(s analytics.SegmentSummary) float64 { return s.AvgPurchases }},
	}
	for _, m := range means {
		data := make([]opts.BarData, 0, len(segments))
		for _, s := range segments {
			data = append(data, opts.BarData{Value: analytics.Round2(m.value(s))})
		}
		c.AddSeries(m.label, data)
	}
	return c
}
