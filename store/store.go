package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/strangecodee/SHL-TASK/internal/profile"
)

// Store provides database access to all raw objects. The assessment catalog
// is read-heavy and immutable during serving, so lookups go through an
// in-process cache populated on first access.
type Store struct {
	profile *profile.Profile
	driver  Driver

	mu          sync.RWMutex
	assessments map[string]*Assessment // id -> assessment
	ordered     []*Assessment          // stable catalog order
	cached      bool
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:      driver,
		profile:     profile,
		assessments: make(map[string]*Assessment),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// UpsertAssessment writes an assessment and invalidates the catalog cache.
func (s *Store) UpsertAssessment(ctx context.Context, assessment *Assessment) error {
	if err := s.driver.UpsertAssessment(ctx, assessment); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = false
	s.mu.Unlock()
	return nil
}

// GetAssessment returns the assessment for the given identifier or
// ErrAssessmentNotFound.
func (s *Store) GetAssessment(ctx context.Context, id string) (*Assessment, error) {
	if err := s.ensureCache(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	assessment, ok := s.assessments[id]
	if !ok {
		return nil, ErrAssessmentNotFound
	}
	return assessment, nil
}

// ListAssessments returns all assessments in stable catalog order.
func (s *Store) ListAssessments(ctx context.Context) ([]*Assessment, error) {
	if err := s.ensureCache(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*Assessment, len(s.ordered))
	copy(list, s.ordered)
	return list, nil
}

func (s *Store) ensureCache(ctx context.Context) error {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached {
		return nil
	}

	list, err := s.driver.ListAssessments(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = make(map[string]*Assessment, len(list))
	for _, assessment := range list {
		s.assessments[assessment.ID] = assessment
	}
	s.ordered = list
	s.cached = true
	slog.Debug("assessment catalog cached", "count", len(list))
	return nil
}

func (s *Store) UpsertAssessmentEmbedding(ctx context.Context, embedding *AssessmentEmbedding) error {
	return s.driver.UpsertAssessmentEmbedding(ctx, embedding)
}

func (s *Store) ListAssessmentEmbeddings(ctx context.Context, model string) ([]*AssessmentEmbedding, error) {
	return s.driver.ListAssessmentEmbeddings(ctx, model)
}

func (s *Store) DeleteAssessmentEmbeddings(ctx context.Context, model string) error {
	return s.driver.DeleteAssessmentEmbeddings(ctx, model)
}
