// Package model contains domain models passed between layers.
package model

// Subject is one fixed entity being scored. The roster is loaded once at
// startup and never mutated.
type Subject struct {
	ID   int    // positive, unique
	Name string // display string
}

// Criterion is one scored dimension with a maximum point value.
type Criterion struct {
	Name      string
	MaxPoints int // positive
}

// Rating is one accepted row for a (rater, subject) pair. Created at
// submission time, immutable thereafter.
type Rating struct {
	RaterID     string         // opaque identity digest
	DeviceID    string         // optional secondary dedup key (origin+agent fingerprint)
	SubjectID   int            //
	SubjectName string         // denormalized for display
	Scores      map[string]int // criterion name -> score, each in [0, MaxPoints]
	Total       int            // sum of Scores; must equal the recomputed sum
}

// Batch is the atomic unit of persistence: every rating produced by one
// submission, for one rater. It is appended in its entirety or not at all.
type Batch struct {
	RaterID  string
	DeviceID string
	Ratings  []Rating
}

// SumScores recomputes the total from the per-criterion scores.
func (r Rating) SumScores() int {
	total := 0
	for _, s := range r.Scores {
		total += s
	}
	return total
}
