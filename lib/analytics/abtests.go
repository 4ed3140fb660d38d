package analytics

import "github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"

type TestSummary struct {
	Total           int
	Significant     int
	MeanImprovement float64
}

// SummarizeTests counts the experiments and averages their improvement.
func SummarizeTests(tests []dataset.ABTestResult) TestSummary {
	var s TestSummary
	var sum float64
	for _, t := range tests {
		s.Total++
		if t.Significant {
			s.Significant++
		}
		sum += t.ImprovementPct
	}
	if s.Total > 0 {
		s.MeanImprovement = sum / float64(s.Total)
	}
	return s
}
