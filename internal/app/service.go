// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/podium/internal/admin"
	repository "github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/identity"
	"github.com/okian/podium/internal/domain/rank"
	"github.com/okian/podium/internal/domain/schema"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Service wires the rating schema, identity resolver, submission store,
// aggregation and admin control into one facade for the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	sch      *schema.Schema
	resolver identity.Resolver
	store    repository.Store
	sessions *SessionRegistry
	control  *admin.Control

	// Configuration
	rosterPath     string
	dataFile       string
	identitySalt   string
	identityPolicy identity.Policy
	adminDigest    string
	storeFsync     bool
	raterSizeHint  int

	// Cached aggregation, keyed on the store version.
	aggVersion uint64
	aggRows    []types.AggregateRow
	aggValid   bool

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRosterPath sets the roster file loaded at startup.
func WithRosterPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.rosterPath = path
		}
	}
}

// WithSchema injects an already built schema instead of loading a roster
// file.
func WithSchema(sch *schema.Schema) Option {
	return func(s *Service) {
		if sch != nil {
			s.sch = sch
		}
	}
}

// WithDataFile sets the path of the persisted ratings log.
func WithDataFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataFile = path
		}
	}
}

// WithIdentitySalt sets the salt for identity digests.
func WithIdentitySalt(salt string) Option {
	return func(s *Service) {
		if salt != "" {
			s.identitySalt = salt
		}
	}
}

// WithIdentityPolicy selects the identity policy.
func WithIdentityPolicy(p identity.Policy) Option {
	return func(s *Service) {
		if p.Valid() {
			s.identityPolicy = p
		}
	}
}

// WithAdminSecretDigest sets the hex SHA-256 digest of the admin secret.
func WithAdminSecretDigest(digest string) Option {
	return func(s *Service) {
		if digest != "" {
			s.adminDigest = digest
		}
	}
}

// WithStoreFsync controls whether the store fsyncs before each rename.
func WithStoreFsync(enabled bool) Option {
	return func(s *Service) {
		s.storeFsync = enabled
	}
}

// WithRaterSizeHint pre-sizes the identity index for an expected rater count.
func WithRaterSizeHint(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.raterSizeHint = n
		}
	}
}

// WithStore injects a prebuilt store, mainly for tests.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataFile:       "scores.csv",
		identityPolicy: identity.PolicyHybrid,
		storeFsync:     true,
		sessions:       NewSessionRegistry(),
		logger:         nil, // set at Start when absent
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting rating service...")

	if s.sch == nil {
		if s.rosterPath == "" {
			return ErrNoRoster
		}
		sch, err := schema.Load(s.rosterPath)
		if err != nil {
			return fmt.Errorf("load roster: %w", err)
		}
		s.sch = sch
	}

	if s.identitySalt == "" {
		return ErrNoIdentitySalt
	}
	resolver, err := identity.New(s.identitySalt, identity.WithPolicy(s.identityPolicy))
	if err != nil {
		return fmt.Errorf("build identity resolver: %w", err)
	}
	s.resolver = resolver

	if s.store == nil {
		store, err := repository.Open(ctx, s.dataFile, s.sch,
			repository.WithFsync(s.storeFsync),
			repository.WithSizeHint(s.raterSizeHint),
		)
		if err != nil {
			return fmt.Errorf("open ratings log: %w", err)
		}
		s.store = store
	}

	if s.adminDigest != "" {
		control, err := admin.New(s.adminDigest, s.store,
			admin.WithSessionInvalidator(s.sessions),
		)
		if err != nil {
			return fmt.Errorf("build admin control: %w", err)
		}
		s.control = control
	}

	metrics.UpdateRatingsStored(s.store.Count(ctx))
	metrics.UpdateRatersStored(int(s.store.Raters(ctx)))

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("subjects", len(s.sch.Subjects())),
		logger.Int("criteria", len(s.sch.Criteria())),
		logger.Int("maxTotal", s.sch.MaxTotal()),
		logger.String("identityPolicy", string(s.identityPolicy)),
		logger.String("dataFile", s.dataFile),
	)
	return nil
}

// Stop marks the service stopped. The store holds no background resources;
// every mutation is already durable when Append returns.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

// Schema exposes the immutable rating schema for rendering.
func (s *Service) Schema() *schema.Schema { return s.sch }

// EnsureSession returns the caller's session token, issuing one if needed.
// The returned token is the one the caller must keep for the whole session.
func (s *Service) EnsureSession(ctx context.Context, token string) string {
	return s.sessions.Ensure(ctx, token)
}

// SessionState reports the explicit submission state for a session.
func (s *Service) SessionState(ctx context.Context, token string) SubmissionState {
	return s.sessions.State(ctx, token)
}

// Resolve derives the rater identity for the request signals.
func (s *Service) Resolve(ctx context.Context, sig identity.Signals) (string, error) {
	id, err := s.resolver.Resolve(ctx, sig)
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}
	return id, nil
}

// HasSubmitted reports whether the signals' identity already has a durable
// batch. Lock-free; for UI gating only. Append remains the final arbiter.
func (s *Service) HasSubmitted(ctx context.Context, sig identity.Signals) (bool, error) {
	id, err := s.Resolve(ctx, sig)
	if err != nil {
		return false, err
	}
	return s.store.HasSubmitted(ctx, id), nil
}

// Submit validates one full submission and appends it atomically.
//
// The session state machine moves NotSubmitted -> Submitting and then, from
// the store's verdict, to Submitted (success or duplicate: both terminal) or
// Failed (storage trouble: retryable). A validation failure returns the
// session to NotSubmitted so the rater can be re-prompted with the complete
// violation list.
func (s *Service) Submit(ctx context.Context, sig identity.Signals, submission map[int]map[string]int) error {
	raterID, err := s.Resolve(ctx, sig)
	if err != nil {
		return err
	}
	deviceID := s.resolver.Fingerprint(ctx, sig)
	token := sig.SessionToken

	s.sessions.transition(ctx, token, StateSubmitting)

	batch, err := s.sch.BuildBatch(raterID, deviceID, submission)
	if err != nil {
		s.sessions.transition(ctx, token, StateNotSubmitted)
		metrics.RecordSubmissionInvalid()
		s.logger.Debug(ctx, "submission rejected by schema", logger.Error(err))
		return err
	}

	err = s.store.Append(ctx, batch)
	switch {
	case err == nil:
		s.sessions.transition(ctx, token, StateSubmitted)
		metrics.RecordSubmissionAccepted()
		metrics.UpdateRatingsStored(s.store.Count(ctx))
		metrics.UpdateRatersStored(int(s.store.Raters(ctx)))
		s.logger.Info(ctx, "submission accepted",
			logger.Int("ratings", len(batch.Ratings)),
		)
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		// Terminal from the rater's point of view: they have submitted.
		s.sessions.transition(ctx, token, StateSubmitted)
		metrics.RecordSubmissionDuplicate()
		s.logger.Info(ctx, "duplicate submission rejected")
		return err
	default:
		s.sessions.transition(ctx, token, StateFailed)
		metrics.RecordStorageError()
		s.logger.Error(ctx, "submission failed", logger.Error(err))
		return err
	}
}

// Rankings returns the aggregate rows for the store's current contents. The
// result is cached against the store version and recomputed only after an
// append or clear moved it.
func (s *Service) Rankings(ctx context.Context) []types.AggregateRow {
	version := s.store.Version(ctx)

	s.mu.RLock()
	if s.aggValid && s.aggVersion == version {
		rows := s.aggRows
		s.mu.RUnlock()
		return rows
	}
	s.mu.RUnlock()

	start := time.Now()
	rows := rank.Aggregate(s.store.All(ctx))
	metrics.RecordAggregateLatency(float64(time.Since(start).Milliseconds()))

	s.mu.Lock()
	// A concurrent append may have moved the version while we computed;
	// cache only what we actually aggregated.
	s.aggVersion = version
	s.aggRows = rows
	s.aggValid = true
	s.mu.Unlock()

	return rows
}

// Admin returns the admin control, or nil when no secret digest was
// configured.
func (s *Service) Admin() *admin.Control { return s.control }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"identityPolicy": string(s.identityPolicy),
		"dataFile":       s.dataFile,
	}

	if s.started {
		stats["subjects"] = len(s.sch.Subjects())
		stats["criteria"] = len(s.sch.Criteria())
		stats["maxTotal"] = s.sch.MaxTotal()
		stats["ratings"] = s.store.Count(ctx)
		stats["raters"] = s.store.Raters(ctx)
		stats["sessions"] = s.sessions.Size()
	}
	return stats
}
