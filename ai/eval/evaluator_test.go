package eval

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecommender struct {
	results map[string][]string
	err     error
}

func (s *stubRecommender) RecommendIDs(_ context.Context, query string, _, _ int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

func TestRecallAtK(t *testing.T) {
	tests := []struct {
		name        string
		groundTruth []string
		recommended []string
		k           int
		want        float64
	}{
		{
			name:        "partial overlap",
			groundTruth: []string{"a", "b", "c"},
			recommended: []string{"a", "x", "b", "y", "z"},
			k:           10,
			want:        2.0 / 3.0,
		},
		{
			name:        "full overlap",
			groundTruth: []string{"a", "b"},
			recommended: []string{"b", "a"},
			k:           10,
			want:        1.0,
		},
		{
			name:        "no overlap",
			groundTruth: []string{"a"},
			recommended: []string{"x", "y"},
			k:           10,
			want:        0,
		},
		{
			name:        "cutoff excludes later hit",
			groundTruth: []string{"c"},
			recommended: []string{"a", "b", "c"},
			k:           2,
			want:        0,
		},
		{
			name:        "empty ground truth",
			groundTruth: nil,
			recommended: []string{"a"},
			k:           10,
			want:        0,
		},
		{
			name:        "empty recommendations",
			groundTruth: []string{"a"},
			recommended: nil,
			k:           10,
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RecallAtK(tt.groundTruth, tt.recommended, tt.k), 1e-9)
		})
	}
}

func TestNewEvaluator(t *testing.T) {
	_, err := NewEvaluator(nil, 20, 10, 10)
	assert.Error(t, err)

	_, err = NewEvaluator(&stubRecommender{}, 20, 10, 0)
	assert.Error(t, err)

	ev, err := NewEvaluator(&stubRecommender{}, 20, 10, 10)
	require.NoError(t, err)
	assert.NotNil(t, ev)
}

func TestEvaluate(t *testing.T) {
	rec := &stubRecommender{results: map[string][]string{
		"java devs":   {"a", "x", "b", "y", "z"}, // 2/3 against {a,b,c}
		"sales lead":  {"p", "q"},                // 1/1 against {p}
		"no overlap":  {"m", "n"},                // 0/1 against {zz}
		"unlabeled q": {"a"},
	}}
	ev, err := NewEvaluator(rec, 20, 10, 10)
	require.NoError(t, err)

	report, err := ev.Evaluate(context.Background(), "full_pipeline", []LabeledQuery{
		{Query: "java devs", RelevantIDs: []string{"a", "b", "c"}},
		{Query: "sales lead", RelevantIDs: []string{"p"}},
		{Query: "no overlap", RelevantIDs: []string{"zz"}},
		{Query: "unlabeled q"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "full_pipeline", report.Method)
	assert.Equal(t, 3, report.QueriesEvaluated)
	assert.Equal(t, 1, report.QueriesSkipped)
	assert.Len(t, report.PerQuery, 4)
	assert.InDelta(t, (2.0/3.0+1.0+0.0)/3.0, report.MeanRecallAtK, 1e-9)

	assert.InDelta(t, 2.0/3.0, report.PerQuery[0].RecallAtK, 1e-9)
	assert.True(t, report.PerQuery[3].Skipped)
}

func TestEvaluateAllSkipped(t *testing.T) {
	ev, err := NewEvaluator(&stubRecommender{}, 20, 10, 10)
	require.NoError(t, err)

	report, err := ev.Evaluate(context.Background(), "baseline", []LabeledQuery{
		{Query: "one"},
		{Query: "two"},
	})
	require.NoError(t, err)
	assert.Zero(t, report.QueriesEvaluated)
	assert.Zero(t, report.MeanRecallAtK)
	assert.Equal(t, 2, report.QueriesSkipped)
}

func TestEvaluatePropagatesPipelineError(t *testing.T) {
	ev, err := NewEvaluator(&stubRecommender{err: errors.New("embedding down")}, 20, 10, 10)
	require.NoError(t, err)

	_, err = ev.Evaluate(context.Background(), "full_pipeline", []LabeledQuery{
		{Query: "q", RelevantIDs: []string{"a"}},
	})
	assert.Error(t, err)
}
