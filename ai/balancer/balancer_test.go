package balancer

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangecodee/SHL-TASK/store"
)

func kCandidate(id string, score float32, rank int) Candidate {
	return Candidate{ID: id, Score: score, TestType: store.TestTypeKnowledge, Rank: rank}
}

func pCandidate(id string, score float32, rank int) Candidate {
	return Candidate{ID: id, Score: score, TestType: store.TestTypePersonality, Rank: rank}
}

func ids(candidates []Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.ID
	}
	return out
}

func countByType(candidates []Candidate) (k, p int) {
	for _, c := range candidates {
		if c.TestType == store.TestTypePersonality {
			p++
		} else {
			k++
		}
	}
	return k, p
}

func TestBalanceMixedThreeItemScenario(t *testing.T) {
	// Catalog of three items: query closest to K1, then P1, then K2.
	// Mixed intent with finalCount=3 targets ~2 K / 1 P; output is globally
	// score-sorted, so P1 sits between the two K items.
	candidates := []Candidate{
		kCandidate("K1", 0.95, 0),
		pCandidate("P1", 0.80, 1),
		kCandidate("K2", 0.60, 2),
	}

	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "general role", candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"K1", "P1", "K2"}, ids(result))
}

func TestBalanceRatios(t *testing.T) {
	// Ten candidates of each category, K ranked ahead of P.
	var candidates []Candidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates, kCandidate("K"+itoa(i), 0.9-float32(i)*0.01, i))
	}
	for i := 0; i < 10; i++ {
		candidates = append(candidates, pCandidate("P"+itoa(i), 0.7-float32(i)*0.01, 10+i))
	}

	b := NewRuleBased(nil)

	testCases := []struct {
		name    string
		query   string
		wantK   int
		wantP   int
	}{
		{"technical leaning 70/30", "hiring java python sql developers for backend programming", 7, 3},
		{"behavioral leaning 30/70", "need leadership teamwork communication and personality fit", 3, 7},
		{"mixed 50/50", "general screening for new hires", 5, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := b.Balance(context.Background(), tc.query, candidates, 10)
			require.NoError(t, err)
			require.Len(t, result, 10)
			k, p := countByType(result)
			assert.Equal(t, tc.wantK, k)
			assert.Equal(t, tc.wantP, p)
		})
	}
}

func TestBalanceMixedDeviationAtMostOne(t *testing.T) {
	var candidates []Candidate
	for i := 0; i < 8; i++ {
		candidates = append(candidates, kCandidate("K"+itoa(i), 0.9-float32(i)*0.01, i))
	}
	for i := 0; i < 8; i++ {
		candidates = append(candidates, pCandidate("P"+itoa(i), 0.85-float32(i)*0.01, 8+i))
	}

	b := NewRuleBased(nil)
	for _, finalCount := range []int{5, 6, 7, 8, 9, 10} {
		result, err := b.Balance(context.Background(), "general hiring", candidates, finalCount)
		require.NoError(t, err)
		require.Len(t, result, finalCount)
		k, p := countByType(result)
		diff := k - p
		if diff < 0 {
			diff = -diff
		}
		assert.LessOrEqual(t, diff, 1, "finalCount=%d gave %dK/%dP", finalCount, k, p)
	}
}

func TestBalanceExhaustedCategorySpills(t *testing.T) {
	// Only one P candidate available for a behavioral query: the P quota
	// cannot be met and K leftovers fill the gap.
	candidates := []Candidate{
		kCandidate("K1", 0.9, 0),
		kCandidate("K2", 0.8, 1),
		kCandidate("K3", 0.7, 2),
		kCandidate("K4", 0.6, 3),
		pCandidate("P1", 0.5, 4),
	}

	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "leadership teamwork personality culture fit", candidates, 5)
	require.NoError(t, err)
	require.Len(t, result, 5)
	k, p := countByType(result)
	assert.Equal(t, 4, k)
	assert.Equal(t, 1, p)
}

func TestBalanceZeroPersonalityCatalog(t *testing.T) {
	candidates := []Candidate{
		kCandidate("K1", 0.9, 0),
		kCandidate("K2", 0.8, 1),
		kCandidate("K3", 0.7, 2),
	}

	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "leadership teamwork personality culture fit", candidates, 3)
	require.NoError(t, err)
	require.Len(t, result, 3)
	_, p := countByType(result)
	assert.Zero(t, p)
}

func TestBalanceNeverPads(t *testing.T) {
	candidates := []Candidate{
		kCandidate("K1", 0.9, 0),
		pCandidate("P1", 0.8, 1),
	}

	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "anything", candidates, 10)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestBalanceNoFabrication(t *testing.T) {
	candidates := []Candidate{
		kCandidate("K1", 0.9, 0),
		kCandidate("K2", 0.8, 1),
		pCandidate("P1", 0.7, 2),
		pCandidate("P2", 0.6, 3),
	}

	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "general", candidates, 4)
	require.NoError(t, err)

	allowed := map[string]bool{"K1": true, "K2": true, "P1": true, "P2": true}
	for _, c := range result {
		assert.True(t, allowed[c.ID], "unexpected id %s", c.ID)
	}
}

func TestBalanceOutputScoreSorted(t *testing.T) {
	candidates := []Candidate{
		kCandidate("K1", 0.9, 0),
		pCandidate("P1", 0.85, 1),
		kCandidate("K2", 0.8, 2),
		pCandidate("P2", 0.75, 3),
		kCandidate("K3", 0.7, 4),
		pCandidate("P3", 0.65, 5),
	}

	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "general", candidates, 6)
	require.NoError(t, err)
	for i := 1; i < len(result); i++ {
		assert.GreaterOrEqual(t, result[i-1].Score, result[i].Score)
	}
}

func TestBalanceDeterminism(t *testing.T) {
	candidates := []Candidate{
		kCandidate("K1", 0.9, 0),
		pCandidate("P1", 0.9, 1),
		kCandidate("K2", 0.8, 2),
	}

	b := NewRuleBased(nil)
	first, err := b.Balance(context.Background(), "general", candidates, 3)
	require.NoError(t, err)
	second, err := b.Balance(context.Background(), "general", candidates, 3)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBalanceEmptyCandidates(t *testing.T) {
	b := NewRuleBased(nil)
	result, err := b.Balance(context.Background(), "general", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
