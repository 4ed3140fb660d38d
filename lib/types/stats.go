package types

import "time"

// RunStats summarizes the recorded pipeline runs.
type RunStats struct {
	TotalRuns      int64
	SucceededRuns  int64
	FailedRuns     int64
	FirstRun       time.Time
	LastRun        time.Time
	LastSuccess    time.Time
	AverageSeconds float64
	// FailuresByStep counts failed runs per failing job, most frequent first.
	FailuresByStep []struct {
		Name  string
		Count int64
	}
}

// SuccessRate is the share of successful runs as a percentage.
func (s RunStats) SuccessRate() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.SucceededRuns) / float64(s.TotalRuns) * 100
}
