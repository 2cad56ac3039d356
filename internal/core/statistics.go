package core

import "math"

// ComputeStatistics derives the summary of a completed run.
// matchCount + unmatchedCount always equals firstTotal for engine output.
// The match rate is rounded to two decimals and is 0.00 for an empty first table.
func ComputeStatistics(matches []Match, unmatched []UnmatchedRecord, firstTotal, secondTotal int) Statistics {
	stats := Statistics{
		FirstTotal:     firstTotal,
		SecondTotal:    secondTotal,
		MatchCount:     len(matches),
		UnmatchedCount: len(unmatched),
	}
	if firstTotal > 0 {
		rate := float64(len(matches)) / float64(firstTotal) * 100
		stats.MatchRatePercent = Percent(math.Round(rate*100) / 100)
	}
	return stats
}
