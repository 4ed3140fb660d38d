package analytics

import (
	"fmt"
	"sort"

	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
)

// SortKey is the ranking criterion of the products page.
type SortKey string

const (
	SortByViews      SortKey = "views"
	SortByPurchases  SortKey = "purchases"
	SortByConversion SortKey = "conversion"
)

// SortKeys lists the ranking criteria in display order.
var SortKeys = []SortKey{SortByViews, SortByPurchases, SortByConversion}

func (k SortKey) Label() string {
	switch k {
	case SortByViews:
		return "Plus consultés"
	case SortByPurchases:
		return "Plus achetés"
	case SortByConversion:
		return "Meilleur taux de conversion"
	}
	return string(k)
}

// ParseSortKey accepts an empty value as SortByViews.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case "":
		return SortByViews, nil
	case SortByViews, SortByPurchases, SortByConversion:
		return SortKey(s), nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// TopProducts returns the n best products under key. Ranking by conversion
// skips products whose rate is not positive. Equal values keep file order.
func TopProducts(products []dataset.ProductStat, key SortKey, n int) []dataset.ProductStat {
	ranked := make([]dataset.ProductStat, 0, len(products))
	for _, p := range products {
		if key == SortByConversion && p.ConversionRate <= 0 {
			continue
		}
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		switch key {
		case SortByPurchases:
			return ranked[i].Purchases > ranked[j].Purchases
		case SortByConversion:
			return ranked[i].ConversionRate > ranked[j].ConversionRate
		default:
			return ranked[i].Views > ranked[j].Views
		}
	})

	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// PerformanceTier grades a product conversion rate.
type PerformanceTier int

const (
	TierExcellent PerformanceTier = iota
	TierGood
	TierAverage
	TierWeak
)

// Tiers lists every tier from best to worst.
var Tiers = []PerformanceTier{TierExcellent, TierGood, TierAverage, TierWeak}

func (t PerformanceTier) String() string {
	switch t {
	case TierExcellent:
		return "Excellent"
	case TierGood:
		return "Bon"
	case TierAverage:
		return "Moyen"
	case TierWeak:
		return "Faible"
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ClassifyPerformance maps a conversion percentage to its tier.
func ClassifyPerformance(rate float64) PerformanceTier {
	switch {
	case rate >= 2:
		return TierExcellent
	case rate >= 1:
		return TierGood
	case rate >= 0.5:
		return TierAverage
	default:
		return TierWeak
	}
}

const (
	potentialMinViews = 100
	priorityMinViews  = 500
	priorityMaxRate   = 1.0
	priorityLimit     = 15
)

// Potential summarizes the products with enough traffic to judge.
type Potential struct {
	Analyzed     int
	TierCounts   map[PerformanceTier]int
	LowRate      int
	LowRateShare float64
	// Priority holds high-traffic products that rarely convert, most viewed first.
	Priority []dataset.ProductStat
}

// AnalyzePotential keeps products with at least 100 views and one purchase.
func AnalyzePotential(products []dataset.ProductStat) Potential {
	pot := Potential{TierCounts: make(map[PerformanceTier]int, len(Tiers))}
	for _, t := range Tiers {
		pot.TierCounts[t] = 0
	}

	var candidates []dataset.ProductStat
	for _, p := range products {
		if p.Views < potentialMinViews || p.Purchases == 0 {
			continue
		}
		pot.Analyzed++
		pot.TierCounts[ClassifyPerformance(p.ConversionRate)]++
		if p.ConversionRate < priorityMaxRate {
			pot.LowRate++
			if p.Views >= priorityMinViews {
				candidates = append(candidates, p)
			}
		}
	}
	pot.LowRateShare = ConversionRate(int64(pot.LowRate), int64(pot.Analyzed))
	pot.Priority = TopProducts(candidates, SortByViews, priorityLimit)
	return pot
}
