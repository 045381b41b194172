// Package repository defines the submission store interface and errors.
package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/okian/podium/internal/adapters/repository/internal/atomicfile"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/schema"
)

// Fixed leading and trailing columns of the persisted tabular form. The
// criterion columns between them come from the schema, in declaration order.
var leadingColumns = []string{"rater_id", "device_id", "subject_id", "subject_name"}

const totalColumn = "total"

// FileStore implements Store on a single flat file, one CSV record per
// rating.
//
// Concurrency: a single RWMutex serializes Append and Clear around the whole
// read-check-write sequence, so the duplicate check and the write are one
// atomic step for every caller. Snapshots (All, WriteTo, Count) take the read
// side. HasSubmitted reads the identity index without the store lock at all.
//
// Durability: every mutation rewrites the log to a temp file in the same
// directory and renames it over the old one, so a crash mid-append leaves
// the file either old-state or new-state, never truncated.
type FileStore struct {
	path     string
	sch      *schema.Schema
	cols     []string
	fileMode fs.FileMode
	fsync    bool

	mu    sync.RWMutex
	rows  []model.Rating
	index dedupe.Index
}

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithFileMode sets the permission bits for the ratings log.
func WithFileMode(mode fs.FileMode) Option {
	return func(s *FileStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithFsync forces an fsync before each rename. Slower, but the new state is
// on stable storage before it becomes visible.
func WithFsync(enabled bool) Option {
	return func(s *FileStore) {
		s.fsync = enabled
	}
}

// WithSizeHint pre-sizes the identity index for an expected rater count.
func WithSizeHint(n int) Option {
	return func(s *FileStore) {
		if n > 0 {
			s.index = dedupe.NewInMemoryIndex(dedupe.WithSizeHint(n))
		}
	}
}

// Open creates a file store over path, loading any existing log. A missing
// file is an empty store; the file appears on the first append.
func Open(ctx context.Context, path string, sch *schema.Schema, opts ...Option) (*FileStore, error) {
	s := &FileStore{
		path:     path,
		sch:      sch,
		cols:     sch.Columns(),
		fileMode: 0o644,
		fsync:    true,
		index:    dedupe.NewInMemoryIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// load reads the existing log into memory and seeds the identity index.
func (s *FileStore) load(ctx context.Context) error {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(s.header())

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptLog, err)
	}
	if !equalColumns(header, s.header()) {
		return fmt.Errorf("%w: header does not match schema columns", ErrCorruptLog)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorruptLog, err)
		}
		rating, err := s.decodeRecord(rec)
		if err != nil {
			return err
		}
		s.rows = append(s.rows, rating)
		s.index.SeenAndRecord(ctx, rating.RaterID)
	}
	return nil
}

// HasSubmitted reports whether id already has a durable batch. Lock-free
// with respect to appends; for UI gating only.
func (s *FileStore) HasSubmitted(ctx context.Context, id string) bool {
	return s.index.Seen(ctx, id)
}

// Append durably writes the whole batch, or nothing.
func (s *FileStore) Append(ctx context.Context, batch model.Batch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if err := s.checkBatch(batch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Authoritative duplicate check, inside the exclusive region. The
	// identity is tentatively recorded here and rolled back if the write
	// fails, mirroring what a caller's own earlier HasSubmitted cannot
	// guarantee.
	if s.index.SeenAndRecord(ctx, batch.RaterID) {
		return fmt.Errorf("%w: rater %s", ErrDuplicate, batch.RaterID)
	}

	next := make([]model.Rating, 0, len(s.rows)+len(batch.Ratings))
	next = append(next, s.rows...)
	next = append(next, batch.Ratings...)

	if err := s.writeSnapshot(next); err != nil {
		s.index.Forget(ctx, batch.RaterID)
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.rows = next
	return nil
}

// All returns a snapshot copy of the stored ratings.
func (s *FileStore) All(_ context.Context) []model.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Rating(nil), s.rows...)
}

// Clear wipes the log. On write failure the prior state, in memory and on
// disk, is untouched.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeSnapshot(nil); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	s.rows = nil
	s.index.Reset(ctx)
	return nil
}

// WriteTo streams the current snapshot as CSV.
func (s *FileStore) WriteTo(_ context.Context, w io.Writer) error {
	s.mu.RLock()
	rows := append([]model.Rating(nil), s.rows...)
	s.mu.RUnlock()

	if err := s.encodeCSV(w, rows); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Version increases on every successful Append or Clear.
func (s *FileStore) Version(_ context.Context) uint64 {
	return s.index.Version()
}

// Count returns the number of stored rating rows.
func (s *FileStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Raters returns the number of distinct rater identities stored.
func (s *FileStore) Raters(_ context.Context) int64 {
	return s.index.Size()
}

// checkBatch enforces the batch invariants the schema promised: one rating
// per roster subject, every subject covered, totals matching their scores.
func (s *FileStore) checkBatch(batch model.Batch) error {
	if batch.RaterID == "" {
		return fmt.Errorf("%w: empty rater identity", ErrBatchShape)
	}
	subjects := s.sch.Subjects()
	if len(batch.Ratings) != len(subjects) {
		return fmt.Errorf("%w: got %d ratings, roster has %d subjects",
			ErrBatchShape, len(batch.Ratings), len(subjects))
	}

	seen := make(map[int]struct{}, len(batch.Ratings))
	for _, r := range batch.Ratings {
		if r.RaterID != batch.RaterID {
			return fmt.Errorf("%w: rating rater %s does not match batch rater %s",
				ErrBatchShape, r.RaterID, batch.RaterID)
		}
		if _, ok := s.sch.Subject(r.SubjectID); !ok {
			return fmt.Errorf("%w: subject %d not in roster", ErrBatchShape, r.SubjectID)
		}
		if _, dup := seen[r.SubjectID]; dup {
			return fmt.Errorf("%w: subject %d rated twice", ErrBatchShape, r.SubjectID)
		}
		seen[r.SubjectID] = struct{}{}
		if r.Total != r.SumScores() {
			return fmt.Errorf("%w: subject %d total %d does not match scores",
				ErrBatchShape, r.SubjectID, r.Total)
		}
	}
	return nil
}

// writeSnapshot writes rows to a temp file and renames it over the log.
// Must be called with s.mu held for writing.
func (s *FileStore) writeSnapshot(rows []model.Rating) error {
	return atomicfile.Write(s.path, s.fileMode, s.fsync, func(w io.Writer) error {
		return s.encodeCSV(w, rows)
	})
}

func (s *FileStore) header() []string {
	h := make([]string, 0, len(leadingColumns)+len(s.cols)+1)
	h = append(h, leadingColumns...)
	h = append(h, s.cols...)
	h = append(h, totalColumn)
	return h
}

func (s *FileStore) encodeCSV(w io.Writer, rows []model.Rating) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.header()); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(s.encodeRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *FileStore) encodeRecord(r model.Rating) []string {
	rec := make([]string, 0, len(leadingColumns)+len(s.cols)+1)
	rec = append(rec, r.RaterID, r.DeviceID, strconv.Itoa(r.SubjectID), r.SubjectName)
	for _, col := range s.cols {
		rec = append(rec, strconv.Itoa(r.Scores[col]))
	}
	rec = append(rec, strconv.Itoa(r.Total))
	return rec
}

func (s *FileStore) decodeRecord(rec []string) (model.Rating, error) {
	subjectID, err := strconv.Atoi(rec[2])
	if err != nil {
		return model.Rating{}, fmt.Errorf("%w: bad subject id %q", ErrCorruptLog, rec[2])
	}

	scores := make(map[string]int, len(s.cols))
	sum := 0
	for i, col := range s.cols {
		v, err := strconv.Atoi(rec[4+i])
		if err != nil {
			return model.Rating{}, fmt.Errorf("%w: bad score %q in column %s", ErrCorruptLog, rec[4+i], col)
		}
		scores[col] = v
		sum += v
	}

	total, err := strconv.Atoi(rec[len(rec)-1])
	if err != nil {
		return model.Rating{}, fmt.Errorf("%w: bad total %q", ErrCorruptLog, rec[len(rec)-1])
	}
	if total != sum {
		return model.Rating{}, fmt.Errorf("%w: total %d does not match scores for subject %d",
			ErrCorruptLog, total, subjectID)
	}

	return model.Rating{
		RaterID:     rec[0],
		DeviceID:    rec[1],
		SubjectID:   subjectID,
		SubjectName: rec[3],
		Scores:      scores,
		Total:       total,
	}, nil
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
