// Package ai implements the retrieval-and-balancing pipeline: embedding a
// hiring query, searching the catalog vector index and balancing the
// candidate set into the final recommendation list.
package ai

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/ai/balancer"
	"github.com/strangecodee/SHL-TASK/ai/metrics"
	"github.com/strangecodee/SHL-TASK/ai/vector"
	"github.com/strangecodee/SHL-TASK/store"
)

// Final list size policy: the service returns between 5 and 10 items, or
// fewer when fewer candidates were retrieved.
const (
	MinFinalCount = 5
	MaxFinalCount = 10
)

// CatalogReader is the read-only catalog view the pipeline needs: the
// source of truth for category tags and display metadata.
type CatalogReader interface {
	GetAssessment(ctx context.Context, id string) (*store.Assessment, error)
}

// Recommender runs the query → embed → search → balance pipeline against a
// shared immutable index and catalog. Safe for concurrent use.
type Recommender struct {
	embedder EmbeddingService
	index    *vector.Index
	catalog  CatalogReader
	strategy balancer.Strategy
	metrics  *metrics.Metrics
	config   RetrievalConfig
}

// NewRecommender wires the pipeline. metrics may be nil.
func NewRecommender(
	embedder EmbeddingService,
	index *vector.Index,
	catalog CatalogReader,
	strategy balancer.Strategy,
	m *metrics.Metrics,
	config RetrievalConfig,
) (*Recommender, error) {
	if embedder == nil {
		return nil, errors.New("embedding service is required")
	}
	if index == nil {
		return nil, errors.New("vector index is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog reader is required")
	}
	if strategy == nil {
		strategy = balancer.NewRuleBased(nil)
	}
	if embedder.Dimensions() != index.Dimension() {
		return nil, errors.Errorf("embedder dimension %d does not match index dimension %d",
			embedder.Dimensions(), index.Dimension())
	}
	return &Recommender{
		embedder: embedder,
		index:    index,
		catalog:  catalog,
		strategy: strategy,
		metrics:  m,
		config:   config,
	}, nil
}

// DefaultTopK returns the configured retrieval depth.
func (r *Recommender) DefaultTopK() int { return r.config.TopK }

// DefaultFinalCount returns the configured output size.
func (r *Recommender) DefaultFinalCount() int { return r.config.FinalCount }

// Recommend maps a hiring query to an ordered, balanced candidate list.
// topK bounds the candidates fetched from the index before balancing;
// finalCount bounds the output size, clamped to the [5,10] policy window
// and further limited by how many candidates were actually retrieved.
// Fewer candidates than requested is a degraded result, not an error.
func (r *Recommender) Recommend(ctx context.Context, query string, topK, finalCount int) ([]balancer.Candidate, error) {
	if strings.TrimSpace(query) == "" {
		r.observe("invalid")
		return nil, errors.Wrap(ErrInvalidRequest, "query must not be empty")
	}
	if topK < 1 {
		r.observe("invalid")
		return nil, errors.Wrapf(ErrInvalidRequest, "top_k must be >= 1, got %d", topK)
	}
	if finalCount < 1 {
		r.observe("invalid")
		return nil, errors.Wrapf(ErrInvalidRequest, "final_count must be >= 1, got %d", finalCount)
	}
	finalCount = clampFinalCount(finalCount)

	start := time.Now()
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.observe("error")
		return nil, errors.Wrap(ErrServiceUnavailable, err.Error())
	}
	r.observeStage(metrics.StageEmbed, time.Since(start))

	start = time.Now()
	results, err := r.index.Search(queryVector, topK)
	if err != nil {
		r.observe("error")
		return nil, errors.Wrap(err, "vector search failed")
	}
	r.observeStage(metrics.StageSearch, time.Since(start))

	candidates := make([]balancer.Candidate, 0, len(results))
	for rank, result := range results {
		assessment, err := r.catalog.GetAssessment(ctx, result.ID)
		if err != nil {
			if errors.Is(err, store.ErrAssessmentNotFound) {
				// Indexed id missing from the catalog: skip rather
				// than fabricate a substitute.
				slog.Warn("indexed assessment missing from catalog", "id", result.ID)
				continue
			}
			r.observe("error")
			return nil, errors.Wrapf(err, "failed to look up candidate %s", result.ID)
		}
		candidates = append(candidates, balancer.Candidate{
			ID:       result.ID,
			Score:    result.Score,
			TestType: assessment.TestType,
			Rank:     rank,
		})
	}

	start = time.Now()
	final, err := r.strategy.Balance(ctx, query, candidates, finalCount)
	if err != nil {
		r.observe("error")
		return nil, errors.Wrap(err, "balancing failed")
	}
	r.observeStage(metrics.StageBalance, time.Since(start))

	if r.metrics != nil {
		r.metrics.ObserveCandidates(len(candidates), len(final))
	}
	r.observe("ok")
	return final, nil
}

// RecommendIDs is Recommend returning identifiers only.
func (r *Recommender) RecommendIDs(ctx context.Context, query string, topK, finalCount int) ([]string, error) {
	final, err := r.Recommend(ctx, query, topK, finalCount)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(final))
	for i, c := range final {
		ids[i] = c.ID
	}
	return ids, nil
}

func (r *Recommender) observe(status string) {
	if r.metrics != nil {
		r.metrics.ObserveRequest(status)
	}
}

func (r *Recommender) observeStage(stage string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveStage(stage, d)
	}
}

func clampFinalCount(n int) int {
	if n < MinFinalCount {
		return MinFinalCount
	}
	if n > MaxFinalCount {
		return MaxFinalCount
	}
	return n
}
