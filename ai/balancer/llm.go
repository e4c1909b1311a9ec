package balancer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// LLMConfig configures the optional LLM reranking strategy.
type LLMConfig struct {
	Model   string
	APIKey  string
	BaseURL string
	Enabled bool
}

// LLMReranker is an optional, non-deterministic strategy layered atop the
// rule-based balancer. The LLM reorders candidates by relevance; category
// quotas are then applied to the reordered list and selection order is kept.
// Any failure falls back to the deterministic rule-based strategy, which
// stays the reference implementation.
type LLMReranker struct {
	client   *openai.Client
	model    string
	enabled  bool
	fallback *RuleBased
}

// NewLLMReranker creates the LLM strategy. When disabled (or the API key is
// missing) every Balance call delegates to the rule-based fallback.
func NewLLMReranker(cfg *LLMConfig, fallback *RuleBased) *LLMReranker {
	r := &LLMReranker{
		model:    cfg.Model,
		enabled:  cfg.Enabled && cfg.APIKey != "",
		fallback: fallback,
	}
	if r.enabled {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		r.client = openai.NewClientWithConfig(clientConfig)
	}
	return r
}

// IsEnabled returns whether LLM reranking is active.
func (r *LLMReranker) IsEnabled() bool {
	return r.enabled
}

func (r *LLMReranker) Balance(ctx context.Context, query string, candidates []Candidate, finalCount int) ([]Candidate, error) {
	if !r.enabled {
		return r.fallback.Balance(ctx, query, candidates, finalCount)
	}

	reranked, err := r.rerank(ctx, query, candidates, finalCount)
	if err != nil {
		slog.Warn("LLM reranking failed, using rule-based fallback", "error", err)
		return r.fallback.Balance(ctx, query, candidates, finalCount)
	}

	intent := r.fallback.Classify(query)
	return r.fallback.selectBalanced(intent, reranked, finalCount), nil
}

func (r *LLMReranker) rerank(ctx context.Context, query string, candidates []Candidate, finalCount int) ([]Candidate, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: rerankPrompt(query, candidates, finalCount),
			},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	indices, err := parseIndexList(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	reranked := make([]Candidate, 0, len(candidates))
	seen := make(map[int]struct{}, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > len(candidates) {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		reranked = append(reranked, candidates[idx-1])
	}
	// Preserve any candidates the model dropped so quota filling still has
	// the full pool to draw from.
	for i, c := range candidates {
		if _, ok := seen[i+1]; !ok {
			reranked = append(reranked, c)
		}
	}
	return reranked, nil
}

func rerankPrompt(query string, candidates []Candidate, finalCount int) string {
	var sb strings.Builder
	sb.WriteString("You are an expert HR assessment advisor. Given a hiring query and a list of candidate assessments, rank the assessments by relevance to the query.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n\nCandidate Assessments:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", i+1, c.ID, c.TestType)
	}
	fmt.Fprintf(&sb, "\nReturn ONLY a JSON array of the top %d assessment numbers in order of relevance.\nExample format: [3, 1, 7, 2, 5]\n", finalCount)
	return sb.String()
}

var indexListPattern = regexp.MustCompile(`\[[\d,\s]+\]`)

// parseIndexList extracts a JSON array of 1-based candidate numbers from the
// model output, tolerating surrounding prose.
func parseIndexList(text string) ([]int, error) {
	match := indexListPattern.FindString(text)
	if match == "" {
		return nil, fmt.Errorf("no index list found in completion")
	}
	var indices []int
	if err := json.Unmarshal([]byte(match), &indices); err != nil {
		return nil, fmt.Errorf("malformed index list: %w", err)
	}
	if len(indices) == 0 {
		return nil, fmt.Errorf("empty index list")
	}
	return indices, nil
}
