// Package schema defines the fixed rating schema: the subject roster and the
// weighted criteria every submission must populate.
//
// The roster is loaded once at startup and treated as immutable. Validation is
// exhaustive: every violation is reported, not just the first, so a caller can
// surface all error messages at once. Re-validation always happens here even
// when a client-side widget already constrains the range; the client is
// untrusted.
package schema

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/okian/podium/internal/domain/model"
)

var validate = validator.New()

// Schema holds the immutable subject roster and ordered criteria.
type Schema struct {
	subjects []model.Subject
	criteria []model.Criterion
	byID     map[int]model.Subject
	maxTotal int
}

// rosterFile mirrors the YAML roster document.
type rosterFile struct {
	Subjects []struct {
		ID   int    `yaml:"id" validate:"required,gt=0"`
		Name string `yaml:"name" validate:"required"`
	} `yaml:"subjects" validate:"required,min=1,dive"`
	Criteria []struct {
		Name      string `yaml:"name" validate:"required"`
		MaxPoints int    `yaml:"max_points" validate:"required,gt=0"`
	} `yaml:"criteria" validate:"required,min=1,dive"`
}

// Load reads a roster file (YAML) and builds a Schema from it.
func Load(path string) (*Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadRoster, err)
	}

	var rf rosterFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadRoster, err)
	}
	if err := validate.Struct(rf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}

	subjects := make([]model.Subject, len(rf.Subjects))
	for i, s := range rf.Subjects {
		subjects[i] = model.Subject{ID: s.ID, Name: s.Name}
	}
	criteria := make([]model.Criterion, len(rf.Criteria))
	for i, c := range rf.Criteria {
		criteria[i] = model.Criterion{Name: c.Name, MaxPoints: c.MaxPoints}
	}
	return New(subjects, criteria)
}

// New builds a Schema from an explicit roster. Subject ids must be positive
// and unique; criterion names must be unique with positive max points.
func New(subjects []model.Subject, criteria []model.Criterion) (*Schema, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: empty subject roster", ErrInvalidRoster)
	}
	if len(criteria) == 0 {
		return nil, fmt.Errorf("%w: empty criteria set", ErrInvalidRoster)
	}

	byID := make(map[int]model.Subject, len(subjects))
	for _, s := range subjects {
		if s.ID <= 0 {
			return nil, fmt.Errorf("%w: subject id %d must be positive", ErrInvalidRoster, s.ID)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate subject id %d", ErrInvalidRoster, s.ID)
		}
		byID[s.ID] = s
	}

	maxTotal := 0
	names := make(map[string]struct{}, len(criteria))
	for _, c := range criteria {
		if c.MaxPoints <= 0 {
			return nil, fmt.Errorf("%w: criterion %q max points must be positive", ErrInvalidRoster, c.Name)
		}
		if _, dup := names[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate criterion %q", ErrInvalidRoster, c.Name)
		}
		names[c.Name] = struct{}{}
		maxTotal += c.MaxPoints
	}

	s := &Schema{
		subjects: append([]model.Subject(nil), subjects...),
		criteria: append([]model.Criterion(nil), criteria...),
		byID:     byID,
		maxTotal: maxTotal,
	}
	return s, nil
}

// Subjects returns a copy of the roster in declaration order.
func (s *Schema) Subjects() []model.Subject {
	return append([]model.Subject(nil), s.subjects...)
}

// Criteria returns a copy of the ordered criteria.
func (s *Schema) Criteria() []model.Criterion {
	return append([]model.Criterion(nil), s.criteria...)
}

// Subject looks up a subject by id.
func (s *Schema) Subject(id int) (model.Subject, bool) {
	sub, ok := s.byID[id]
	return sub, ok
}

// MaxTotal is the sum of all criterion max points.
func (s *Schema) MaxTotal() int { return s.maxTotal }

// Columns returns the criterion names in declaration order. This fixes the
// column layout of the persisted tabular form and the export.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.criteria))
	for i, c := range s.criteria {
		cols[i] = c.Name
	}
	return cols
}

// Validate checks one rating's per-criterion scores against the schema and
// returns the recomputed total. Every criterion must be present and within
// [0, MaxPoints]. All violations are collected before returning.
func (s *Schema) Validate(scores map[string]int) (int, error) {
	var vs Violations

	known := make(map[string]struct{}, len(s.criteria))
	total := 0
	for _, c := range s.criteria {
		known[c.Name] = struct{}{}
		given, ok := scores[c.Name]
		if !ok {
			vs = append(vs, Violation{Criterion: c.Name, Max: c.MaxPoints, Reason: ReasonMissing})
			continue
		}
		if given < 0 || given > c.MaxPoints {
			vs = append(vs, Violation{Criterion: c.Name, Given: given, Max: c.MaxPoints, Reason: ReasonOutOfRange})
			continue
		}
		total += given
	}
	for name, given := range scores {
		if _, ok := known[name]; !ok {
			vs = append(vs, Violation{Criterion: name, Given: given, Reason: ReasonUnknown})
		}
	}

	if len(vs) > 0 {
		vs.sortStable()
		return 0, vs
	}
	return total, nil
}

// BuildBatch validates a full submission (subject id -> criterion scores) and
// assembles the atomic batch. Every subject in the roster must be scored
// exactly once; partial submissions are rejected so the store never holds a
// subset of a rater's rows.
func (s *Schema) BuildBatch(raterID, deviceID string, submission map[int]map[string]int) (model.Batch, error) {
	var vs Violations

	for id := range submission {
		if _, ok := s.byID[id]; !ok {
			vs = append(vs, Violation{SubjectID: id, Reason: ReasonUnknownSubject})
		}
	}

	ratings := make([]model.Rating, 0, len(s.subjects))
	for _, sub := range s.subjects {
		scores, ok := submission[sub.ID]
		if !ok {
			vs = append(vs, Violation{SubjectID: sub.ID, Reason: ReasonMissingSubject})
			continue
		}
		total, err := s.Validate(scores)
		if err != nil {
			var sv Violations
			if errors := asViolations(err, &sv); errors {
				for i := range sv {
					sv[i].SubjectID = sub.ID
				}
				vs = append(vs, sv...)
			}
			continue
		}
		copied := make(map[string]int, len(scores))
		for k, v := range scores {
			copied[k] = v
		}
		ratings = append(ratings, model.Rating{
			RaterID:     raterID,
			DeviceID:    deviceID,
			SubjectID:   sub.ID,
			SubjectName: sub.Name,
			Scores:      copied,
			Total:       total,
		})
	}

	if len(vs) > 0 {
		vs.sortStable()
		return model.Batch{}, vs
	}
	return model.Batch{RaterID: raterID, DeviceID: deviceID, Ratings: ratings}, nil
}

// sortStable orders violations by subject id then criterion for reproducible
// error listings.
func (v Violations) sortStable() {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].SubjectID != v[j].SubjectID {
			return v[i].SubjectID < v[j].SubjectID
		}
		return v[i].Criterion < v[j].Criterion
	})
}
