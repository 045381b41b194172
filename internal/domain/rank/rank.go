// Package rank computes per-subject aggregates and the published ranking.
//
// Aggregation is a pure function over a point-in-time snapshot of ratings:
// no state, no locks, identical output for any permutation of the input.
package rank

import (
	"math"
	"sort"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// bucket accumulates one subject's totals during grouping.
type bucket struct {
	subjectID   int
	subjectName string
	sum         int
	count       int
	max         int
	min         int
}

// Aggregate groups ratings by subject and computes mean, count, max and min
// of the per-rating totals. Rows are ordered by descending mean, ties broken
// by ascending subject id, and carry 1-based ranks with no gaps. A subject
// with zero ratings yields no row at all rather than a misleading zero mean.
func Aggregate(ratings []model.Rating) []types.AggregateRow {
	if len(ratings) == 0 {
		return nil
	}

	buckets := make(map[int]*bucket, 16)
	for _, r := range ratings {
		b, ok := buckets[r.SubjectID]
		if !ok {
			b = &bucket{
				subjectID:   r.SubjectID,
				subjectName: r.SubjectName,
				max:         r.Total,
				min:         r.Total,
			}
			buckets[r.SubjectID] = b
		}
		b.sum += r.Total
		b.count++
		if r.Total > b.max {
			b.max = r.Total
		}
		if r.Total < b.min {
			b.min = r.Total
		}
	}

	rows := make([]types.AggregateRow, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, types.AggregateRow{
			SubjectID:   b.subjectID,
			SubjectName: b.subjectName,
			MeanTotal:   round2(float64(b.sum) / float64(b.count)),
			RaterCount:  b.count,
			MaxTotal:    b.max,
			MinTotal:    b.min,
		})
	}

	// Deterministic total order: the natural map iteration order is not.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].MeanTotal != rows[j].MeanTotal {
			return rows[i].MeanTotal > rows[j].MeanTotal
		}
		return rows[i].SubjectID < rows[j].SubjectID
	})

	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// round2 rounds to two decimal places for stable display and comparison.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
