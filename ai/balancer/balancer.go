// Package balancer turns a ranked candidate list into the final
// recommendation set, honoring a category-balance policy derived from the
// query's intent while preserving relevance order.
package balancer

import (
	"context"
	"math"
	"sort"

	"github.com/strangecodee/SHL-TASK/store"
)

// Candidate is a transient retrieval result: an assessment identifier, its
// similarity score and its category tag. Rank is the position in the
// original retrieval order and is used for deterministic tie-breaking.
type Candidate struct {
	ID       string
	Score    float32
	TestType store.TestType
	Rank     int
}

// Strategy produces the final ordered recommendation list from retrieval
// candidates. Implementations must never emit an identifier that is not
// present among the input candidates and must never pad with extra items.
type Strategy interface {
	Balance(ctx context.Context, query string, candidates []Candidate, finalCount int) ([]Candidate, error)
}

// Config holds the category-mix ratios per query intent. Ratios are the
// Knowledge & Skills share; the Personality share is the complement.
type Config struct {
	TechnicalKRatio  float64
	BehavioralKRatio float64
	MixedKRatio      float64
	Lexicon          *Lexicon
}

// DefaultConfig returns the standard ratio policy: technical queries lean
// 70/30 toward K-type, behavioral queries 30/70, mixed queries 50/50.
func DefaultConfig() *Config {
	return &Config{
		TechnicalKRatio:  0.7,
		BehavioralKRatio: 0.3,
		MixedKRatio:      0.5,
		Lexicon:          DefaultLexicon(),
	}
}

// RuleBased is the deterministic reference balancing strategy.
//
// Selection: the query intent maps to a target K/P ratio; per-category
// quotas are filled by walking the two score-ordered sublists, and any
// unfillable quota spills to the other category so the output size is only
// limited by the available candidates. Output ordering is pinned to
// descending similarity score across the selected set; the category
// interleaving decides which items are chosen, not their final order.
type RuleBased struct {
	config *Config
}

// NewRuleBased creates the rule-based strategy. A nil config uses defaults.
func NewRuleBased(config *Config) *RuleBased {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Lexicon == nil {
		config.Lexicon = DefaultLexicon()
	}
	return &RuleBased{config: config}
}

// Classify exposes the intent classification for logging and evaluation.
func (b *RuleBased) Classify(query string) Intent {
	return b.config.Lexicon.Classify(query)
}

func (b *RuleBased) Balance(_ context.Context, query string, candidates []Candidate, finalCount int) ([]Candidate, error) {
	intent := b.config.Lexicon.Classify(query)
	selected := b.selectBalanced(intent, candidates, finalCount)

	// Pinned output policy: globally score-sorted, ties by retrieval rank.
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Score != selected[j].Score {
			return selected[i].Score > selected[j].Score
		}
		return selected[i].Rank < selected[j].Rank
	})
	return selected, nil
}

// kRatioFor maps a query intent to the target K-type share.
func (b *RuleBased) kRatioFor(intent Intent) float64 {
	switch intent {
	case IntentTechnical:
		return b.config.TechnicalKRatio
	case IntentBehavioral:
		return b.config.BehavioralKRatio
	default:
		return b.config.MixedKRatio
	}
}

// selectBalanced picks up to finalCount candidates honoring the intent's
// target ratio, preserving the given candidate order within each category.
// The returned slice keeps selection order; callers decide final ordering.
func (b *RuleBased) selectBalanced(intent Intent, candidates []Candidate, finalCount int) []Candidate {
	if finalCount <= 0 || len(candidates) == 0 {
		return nil
	}

	var kList, pList []Candidate
	for _, c := range candidates {
		if c.TestType == store.TestTypePersonality {
			pList = append(pList, c)
		} else {
			kList = append(kList, c)
		}
	}

	total := finalCount
	if total > len(candidates) {
		total = len(candidates)
	}

	kRatio := b.kRatioFor(intent)
	kQuota := int(math.Floor(kRatio * float64(total)))
	pQuota := int(math.Floor((1 - kRatio) * float64(total)))

	// Rounding remainder goes to whichever category has more candidates
	// left beyond its quota; ties favor the higher-ratio category.
	if remainder := total - kQuota - pQuota; remainder > 0 {
		kLeft := len(kList) - kQuota
		pLeft := len(pList) - pQuota
		switch {
		case kLeft > pLeft:
			kQuota += remainder
		case pLeft > kLeft:
			pQuota += remainder
		case kRatio >= 1-kRatio:
			kQuota += remainder
		default:
			pQuota += remainder
		}
	}

	kTake := min(kQuota, len(kList))
	pTake := min(pQuota, len(pList))

	// One category exhausted before its quota: fill from the other's
	// leftover candidates, still in score order. Never pad beyond what
	// was retrieved.
	if shortfall := total - kTake - pTake; shortfall > 0 {
		extraK := min(shortfall, len(kList)-kTake)
		kTake += extraK
		shortfall -= extraK
		pTake += min(shortfall, len(pList)-pTake)
	}

	selected := make([]Candidate, 0, kTake+pTake)
	selected = append(selected, kList[:kTake]...)
	selected = append(selected, pList[:pTake]...)
	return selected
}
