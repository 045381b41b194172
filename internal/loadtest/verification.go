package loadtest

import (
	"context"
	"fmt"
	"log"
	"math"
)

// meanTolerance absorbs float formatting differences on the wire.
const meanTolerance = 0.005

// roundTwo rounds to two decimal places, half away from zero.
func roundTwo(x float64) float64 {
	return math.Round(x*100) / 100
}

// verifyRankings checks the service's aggregate rows against what the
// generated sheets imply: same means, counts and extremes, ordered by mean
// descending with subject id breaking ties, and dense 1-based ranks.
func verifyRankings(ctx context.Context, rankings []RankingRow, expected map[int]expectedRow) error {
	log.Println("verifying rankings...")

	if len(rankings) != len(expected) {
		return fmt.Errorf("expected %d ranked subjects, got %d", len(expected), len(rankings))
	}

	for i, row := range rankings {
		want, ok := expected[row.SubjectID]
		if !ok {
			return fmt.Errorf("unexpected subject %d in rankings", row.SubjectID)
		}
		if math.Abs(row.MeanTotal-want.Mean) > meanTolerance {
			return fmt.Errorf("subject %d: mean %.3f, want %.3f", row.SubjectID, row.MeanTotal, want.Mean)
		}
		if row.RaterCount != want.Count {
			return fmt.Errorf("subject %d: rater count %d, want %d", row.SubjectID, row.RaterCount, want.Count)
		}
		if row.MaxTotal != want.Max || row.MinTotal != want.Min {
			return fmt.Errorf("subject %d: extremes [%d, %d], want [%d, %d]",
				row.SubjectID, row.MinTotal, row.MaxTotal, want.Min, want.Max)
		}
		if row.Rank != i+1 {
			return fmt.Errorf("position %d carries rank %d; ranks must be dense and 1-based", i, row.Rank)
		}
		if i > 0 {
			prev := rankings[i-1]
			if row.MeanTotal > prev.MeanTotal {
				return fmt.Errorf("rankings not sorted: subject %d above subject %d", prev.SubjectID, row.SubjectID)
			}
			if row.MeanTotal == prev.MeanTotal && row.SubjectID < prev.SubjectID {
				return fmt.Errorf("tie between %d and %d not broken by subject id", prev.SubjectID, row.SubjectID)
			}
		}
	}

	log.Println("ranking verification completed")
	return nil
}

// displayTopSubjects shows the best ranked subjects.
func displayTopSubjects(rankings []RankingRow, verbose bool) {
	topN := 10
	if len(rankings) < topN {
		topN = len(rankings)
	}

	log.Printf("top %d subjects:", topN)
	for i := 0; i < topN; i++ {
		row := rankings[i]
		log.Printf("   %d. %s - Mean: %.2f (raters: %d)", row.Rank, row.SubjectName, row.MeanTotal, row.RaterCount)
	}

	if verbose && len(rankings) > 0 {
		sum := 0.0
		for _, row := range rankings {
			sum += row.MeanTotal
		}
		log.Printf(`mean statistics:
   Average: %.2f
   Best: %.2f
   Worst: %.2f
`, sum/float64(len(rankings)), rankings[0].MeanTotal, rankings[len(rankings)-1].MeanTotal)
	}
}
