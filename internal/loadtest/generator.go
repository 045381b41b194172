package loadtest

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"

	"github.com/google/uuid"
	"github.com/okian/podium/pkg/logger"
)

// randomScore returns a random score in [0, maxPoints] using crypto/rand.
func randomScore(maxPoints int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(maxPoints+1)))
	return int(n.Int64())
}

// generateSubmissions creates a full rating sheet per rater, each under a
// fresh session token so every rater resolves to a distinct identity.
func generateSubmissions(ctx context.Context, config *Config, doc *SchemaDoc, stats *Stats) []Submission {
	logger.Get().Info(ctx, "generating submissions",
		logger.Int("raters", config.NumRaters),
		logger.Int("subjects", len(doc.Subjects)),
		logger.Int("criteria", len(doc.Criteria)))

	subs := make([]Submission, config.NumRaters)
	for i := range subs {
		ratings := make(map[string]map[string]int, len(doc.Subjects))
		for _, subject := range doc.Subjects {
			scores := make(map[string]int, len(doc.Criteria))
			for _, criterion := range doc.Criteria {
				scores[criterion.Name] = randomScore(criterion.MaxPoints)
			}
			ratings[strconv.Itoa(subject.ID)] = scores
		}
		subs[i] = Submission{
			SessionToken: uuid.New().String(),
			Ratings:      ratings,
		}
	}

	stats.RatersGenerated = len(subs)
	return subs
}

// expectedAggregate recomputes per-subject totals from the generated sheets
// the same way the service is expected to: mean of totals, rounded to two
// decimals, with max and min over raters.
func expectedAggregate(subs []Submission) map[int]expectedRow {
	type bucket struct {
		sum   int
		count int
		max   int
		min   int
	}
	buckets := make(map[int]*bucket)

	for _, sub := range subs {
		for key, scores := range sub.Ratings {
			id, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			total := 0
			for _, s := range scores {
				total += s
			}
			b, ok := buckets[id]
			if !ok {
				b = &bucket{max: total, min: total}
				buckets[id] = b
			} else {
				if total > b.max {
					b.max = total
				}
				if total < b.min {
					b.min = total
				}
			}
			b.sum += total
			b.count++
		}
	}

	rows := make(map[int]expectedRow, len(buckets))
	for id, b := range buckets {
		mean := float64(b.sum) / float64(b.count)
		rows[id] = expectedRow{
			Mean:  roundTwo(mean),
			Count: b.count,
			Max:   b.max,
			Min:   b.min,
		}
	}
	return rows
}

type expectedRow struct {
	Mean  float64
	Count int
	Max   int
	Min   int
}
