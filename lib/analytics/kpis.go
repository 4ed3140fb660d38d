// Package analytics derives the dashboard figures from the loaded artifacts.
// Every function is pure and never mutates its input slices.
package analytics

import (
	"math"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
)

// ConversionRate returns num/den as a percentage, or 0 when den is 0.
func ConversionRate(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// VisitorConversion is the share of unique visitors who purchased, rounded to
// two decimals.
func VisitorConversion(k dataset.KPISummary) float64 {
	return Round2(ConversionRate(k.TotalTransactions, k.TotalVisitors))
}

// FunnelStage is one step of the view → cart → purchase funnel.
type FunnelStage struct {
	Label            string  `json:"label"`
	Count            int64   `json:"count"`
	PercentOfInitial float64 `json:"percent_of_initial"`
	PercentOfPrev    float64 `json:"percent_of_previous"`
}

// BuildFunnel lays out the purchase funnel from the global totals.
func BuildFunnel(k dataset.KPISummary) []FunnelStage {
	stages := []FunnelStage{
		{Label: "Consultation de produits", Count: k.TotalViews},
		{Label: "Ajout au panier", Count: k.TotalAddToCart},
		{Label: "Achat finalisé", Count: k.TotalTransactions},
	}
	initial := stages[0].Count
	for i := range stages {
		stages[i].PercentOfInitial = ConversionRate(stages[i].Count, initial)
		if i == 0 {
			stages[i].PercentOfPrev = 100
			if initial == 0 {
				stages[i].PercentOfPrev = 0
			}
			continue
		}
		stages[i].PercentOfPrev = ConversionRate(stages[i].Count, stages[i-1].Count)
	}
	return stages
}

// Share is one slice of a pie chart.
type Share struct {
	Label   string
	Count   int64
	Percent float64
}

// ActionShares splits the tracked actions by type.
func ActionShares(k dataset.KPISummary) []Share {
	shares := []Share{
		{Label: "Consultations", Count: k.TotalViews},
		{Label: "Ajouts panier", Count: k.TotalAddToCart},
		{Label: "Achats", Count: k.TotalTransactions},
	}
	total := k.TotalViews + k.TotalAddToCart + k.TotalTransactions
	for i := range shares {
		shares[i].Percent = ConversionRate(shares[i].Count, total)
	}
	return shares
}

// Level grades a diagnostic.
type Level string

const (
	LevelOK    Level = "ok"
	LevelWarn  Level = "warn"
	LevelAlert Level = "alert"
)

type Diagnostic struct {
	Title  string  `json:"title"`
	Level  Level   `json:"level"`
	Detail string  `json:"detail"`
	Target string  `json:"target,omitempty"`
	Value  float64 `json:"value"`
}

const (
	conversionFloor   = 0.8
	conversionCeiling = 3.0
	abandonThreshold  = 60.0
	passiveThreshold  = 95.0
)

// Diagnose grades conversion, cart abandonment and visitor engagement.
func Diagnose(k dataset.KPISummary) []Diagnostic {
	var out []Diagnostic

	conv := k.ConversionRateViewToPurchase
	if conv >= conversionFloor && conv <= conversionCeiling {
		out = append(out, Diagnostic{Title: "Taux de conversion normal", Level: LevelOK,
			Detail: "des visiteurs achètent", Target: "Objectif : entre 1% et 3%", Value: conv})
	} else {
		out = append(out, Diagnostic{Title: "Taux de conversion à améliorer", Level: LevelWarn,
			Detail: "des visiteurs achètent", Value: conv})
	}

	abandon := 100 - k.ConversionRateCartToPurchase
	if abandon > abandonThreshold {
		out = append(out, Diagnostic{Title: "Beaucoup de paniers abandonnés", Level: LevelWarn,
			Detail: "des paniers non finalisés", Target: "Objectif : moins de 60%", Value: abandon})
	} else {
		out = append(out, Diagnostic{Title: "Abandon de panier maîtrisé", Level: LevelOK,
			Detail: "des paniers non finalisés", Value: abandon})
	}

	engaged := ConversionRate(k.TotalAddToCart+k.TotalTransactions, k.TotalVisitors)
	passive := 100 - engaged
	if passive > passiveThreshold {
		out = append(out, Diagnostic{Title: "Beaucoup de visiteurs passifs", Level: LevelAlert,
			Detail: "ne font qu'observer", Target: "Opportunité d'activation", Value: passive})
	} else {
		out = append(out, Diagnostic{Title: "Bon engagement des visiteurs", Level: LevelOK,
			Detail: "de visiteurs actifs", Value: engaged})
	}
	return out
}
