// Package eval computes recall-style quality metrics for the recommendation
// pipeline against a labeled query set.
package eval

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// LabeledQuery pairs a hiring query with its ground-truth relevant
// assessment identifiers.
type LabeledQuery struct {
	Query       string
	RelevantIDs []string
}

// QueryResult is the per-query evaluation outcome.
type QueryResult struct {
	Query          string   `json:"query"`
	RecallAtK      float64  `json:"recall_at_k"`
	RelevantCount  int      `json:"relevant_count"`
	RecommendedIDs []string `json:"recommended_ids"`
	Skipped        bool     `json:"skipped"` // no ground truth; excluded from the mean
}

// Report is the aggregate evaluation result. Given the same index snapshot
// and query set it is reproducible, apart from the run identifier.
type Report struct {
	RunID            string        `json:"run_id"`
	Method           string        `json:"method"`
	K                int           `json:"k"`
	MeanRecallAtK    float64       `json:"mean_recall_at_k"`
	QueriesEvaluated int           `json:"queries_evaluated"`
	QueriesSkipped   int           `json:"queries_skipped"`
	Elapsed          time.Duration `json:"elapsed"`
	PerQuery         []QueryResult `json:"per_query"`
}

// Recommender is the pipeline surface the evaluator consumes.
type Recommender interface {
	RecommendIDs(ctx context.Context, query string, topK, finalCount int) ([]string, error)
}

// RecallAtK computes |groundTruth ∩ first k of recommended| / |groundTruth|.
// An empty ground truth set yields 0; callers exclude that case from means.
func RecallAtK(groundTruth, recommended []string, k int) float64 {
	if len(groundTruth) == 0 {
		return 0
	}
	if k > len(recommended) {
		k = len(recommended)
	}

	topK := make(map[string]struct{}, k)
	for _, id := range recommended[:k] {
		topK[id] = struct{}{}
	}

	found := 0
	for _, id := range groundTruth {
		if _, ok := topK[id]; ok {
			found++
		}
	}
	return float64(found) / float64(len(groundTruth))
}

// Evaluator runs the pipeline over a labeled query set and aggregates
// Recall@K. Read-only; it has no side effects beyond the returned report.
type Evaluator struct {
	recommender Recommender
	topK        int
	finalCount  int
	k           int
}

// NewEvaluator creates an evaluator. k is the recall cutoff (typically 10).
func NewEvaluator(recommender Recommender, topK, finalCount, k int) (*Evaluator, error) {
	if recommender == nil {
		return nil, errors.New("recommender is required")
	}
	if k < 1 {
		return nil, errors.Errorf("recall cutoff must be >= 1, got %d", k)
	}
	return &Evaluator{
		recommender: recommender,
		topK:        topK,
		finalCount:  finalCount,
		k:           k,
	}, nil
}

// Evaluate computes per-query and mean Recall@K over the labeled set.
// Queries with no ground truth are recorded but excluded from the mean.
func (e *Evaluator) Evaluate(ctx context.Context, method string, queries []LabeledQuery) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:  uuid.NewString(),
		Method: method,
		K:      e.k,
	}

	var recallSum float64
	for i, labeled := range queries {
		if len(labeled.RelevantIDs) == 0 {
			slog.Warn("query has no ground truth, skipping", "index", i)
			report.QueriesSkipped++
			report.PerQuery = append(report.PerQuery, QueryResult{
				Query:   labeled.Query,
				Skipped: true,
			})
			continue
		}

		recommended, err := e.recommender.RecommendIDs(ctx, labeled.Query, e.topK, e.finalCount)
		if err != nil {
			return nil, errors.Wrapf(err, "evaluation failed on query %d", i)
		}

		recall := RecallAtK(labeled.RelevantIDs, recommended, e.k)
		recallSum += recall
		report.QueriesEvaluated++
		report.PerQuery = append(report.PerQuery, QueryResult{
			Query:          labeled.Query,
			RecallAtK:      recall,
			RelevantCount:  len(labeled.RelevantIDs),
			RecommendedIDs: recommended,
		})
	}

	if report.QueriesEvaluated > 0 {
		report.MeanRecallAtK = recallSum / float64(report.QueriesEvaluated)
	}
	report.Elapsed = time.Since(start)
	return report, nil
}
