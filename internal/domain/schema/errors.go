package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for schema errors.
var (
	ErrLoadRoster    = errors.New("load roster failed")
	ErrInvalidRoster = errors.New("invalid roster")
	ErrValidation    = errors.New("validation failed")
)

// Violation reasons.
const (
	ReasonOutOfRange     = "out_of_range"
	ReasonMissing        = "missing_criterion"
	ReasonUnknown        = "unknown_criterion"
	ReasonMissingSubject = "missing_subject"
	ReasonUnknownSubject = "unknown_subject"
)

// Violation describes a single rejected value in a submission.
type Violation struct {
	SubjectID int    `json:"subject_id,omitempty"`
	Criterion string `json:"criterion,omitempty"`
	Given     int    `json:"given"`
	Max       int    `json:"max,omitempty"`
	Reason    string `json:"reason"`
}

func (v Violation) String() string {
	switch v.Reason {
	case ReasonOutOfRange:
		return fmt.Sprintf("criterion %q: given %d, max %d", v.Criterion, v.Given, v.Max)
	case ReasonMissing:
		return fmt.Sprintf("criterion %q: missing score", v.Criterion)
	case ReasonUnknown:
		return fmt.Sprintf("criterion %q: not in schema", v.Criterion)
	case ReasonMissingSubject:
		return fmt.Sprintf("subject %d: not scored", v.SubjectID)
	case ReasonUnknownSubject:
		return fmt.Sprintf("subject %d: not in roster", v.SubjectID)
	}
	return fmt.Sprintf("criterion %q: invalid", v.Criterion)
}

// Violations is the exhaustive list of everything wrong with a submission.
// It implements error and matches ErrValidation under errors.Is.
type Violations []Violation

func (v Violations) Error() string {
	parts := make([]string, len(v))
	for i, viol := range v {
		parts[i] = viol.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets callers test errors.Is(err, ErrValidation) without knowing the
// concrete type.
func (v Violations) Is(target error) bool {
	return target == ErrValidation
}

func asViolations(err error, out *Violations) bool {
	return errors.As(err, out)
}
