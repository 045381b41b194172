// Package types contains common types used across the application
package types

// AggregateRow is one ranking row derived from the stored ratings.
// It is recomputed on demand and never persisted.
type AggregateRow struct {
	Rank        int     `json:"rank"`
	SubjectID   int     `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	MeanTotal   float64 `json:"mean_total"`
	RaterCount  int     `json:"rater_count"`
	MaxTotal    int     `json:"max_total"`
	MinTotal    int     `json:"min_total"`
}
