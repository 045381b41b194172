package loadtest

import "time"

// Config holds configuration for the submission test
type Config struct {
	BaseURL       string        // Base URL of the service
	NumRaters     int           // Number of simulated raters
	ResubmitEvery int           // Re-submit every Nth rater to exercise dedupe
	Workers       int           // Number of concurrent workers
	Timeout       time.Duration // HTTP request timeout
	LogFile       string        // Log file for test output
	Verbose       bool          // Enable verbose logging
}

// Submission is one rater's full rating sheet.
type Submission struct {
	SessionToken string                    `json:"session_token"`
	Ratings      map[string]map[string]int `json:"ratings"`
}

// SubmitAck mirrors the response from POST /ratings.
type SubmitAck struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// SchemaDoc mirrors the response from GET /schema.
type SchemaDoc struct {
	Subjects []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"subjects"`
	Criteria []struct {
		Name      string `json:"name"`
		MaxPoints int    `json:"max_points"`
	} `json:"criteria"`
	MaxTotal int `json:"max_total"`
}

// RankingRow mirrors one aggregate row from GET /rankings.
type RankingRow struct {
	Rank        int     `json:"rank"`
	SubjectID   int     `json:"subject_id"`
	SubjectName string  `json:"subject_name"`
	MeanTotal   float64 `json:"mean_total"`
	RaterCount  int     `json:"rater_count"`
	MaxTotal    int     `json:"max_total"`
	MinTotal    int     `json:"min_total"`
}

// RankingsDoc mirrors the response from GET /rankings.
type RankingsDoc struct {
	Rankings []RankingRow `json:"rankings"`
}

// Stats holds test statistics
type Stats struct {
	RatersGenerated int
	Submitted       int
	Accepted        int
	Duplicate       int
	Invalid         int
	Failed          int
	RankingRows     int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
