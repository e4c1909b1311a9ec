package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmbeddingServer fakes an OpenAI-compatible /embeddings endpoint that
// returns a fixed vector per input text.
func newEmbeddingServer(t *testing.T, dimensions int, failures *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures != nil && failures.Load() > 0 {
			failures.Add(-1)
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		resp := struct {
			Data []datum `json:"data"`
		}{}
		for i := range req.Input {
			vec := make([]float32, dimensions)
			vec[0] = float32(i + 1)
			resp.Data = append(resp.Data, datum{Embedding: vec, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func testEmbeddingConfig(baseURL string) *EmbeddingConfig {
	return &EmbeddingConfig{
		Provider:       "openai",
		Model:          "test-embedding",
		APIKey:         "sk-test",
		BaseURL:        baseURL,
		Dimensions:     4,
		TimeoutSeconds: 5,
	}
}

func TestNewEmbeddingServiceValidation(t *testing.T) {
	t.Run("missing model", func(t *testing.T) {
		cfg := testEmbeddingConfig("http://localhost")
		cfg.Model = ""
		_, err := NewEmbeddingService(cfg)
		assert.Error(t, err)
	})

	t.Run("non-positive dimensions", func(t *testing.T) {
		cfg := testEmbeddingConfig("http://localhost")
		cfg.Dimensions = 0
		_, err := NewEmbeddingService(cfg)
		assert.Error(t, err)
	})
}

func TestEmbedBatch(t *testing.T) {
	server := newEmbeddingServer(t, 4, nil)
	defer server.Close()

	svc, err := NewEmbeddingService(testEmbeddingConfig(server.URL + "/v1"))
	require.NoError(t, err)
	assert.Equal(t, 4, svc.Dimensions())

	vectors, err := svc.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[0][0])
	assert.Equal(t, float32(2), vectors[1][0])
}

func TestEmbedAcceptsEmptyString(t *testing.T) {
	server := newEmbeddingServer(t, 4, nil)
	defer server.Close()

	svc, err := NewEmbeddingService(testEmbeddingConfig(server.URL + "/v1"))
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbedBatchRejectsEmptyInput(t *testing.T) {
	svc, err := NewEmbeddingService(testEmbeddingConfig("http://localhost"))
	require.NoError(t, err)

	_, err = svc.EmbedBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestEmbedRetriesOnceOnTransientFailure(t *testing.T) {
	var failures atomic.Int32
	failures.Store(1) // first attempt fails, retry succeeds
	server := newEmbeddingServer(t, 4, &failures)
	defer server.Close()

	svc, err := NewEmbeddingService(testEmbeddingConfig(server.URL + "/v1"))
	require.NoError(t, err)

	vec, err := svc.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}

func TestEmbedFailsAfterSecondFailure(t *testing.T) {
	var failures atomic.Int32
	failures.Store(2) // both attempts fail
	server := newEmbeddingServer(t, 4, &failures)
	defer server.Close()

	svc, err := NewEmbeddingService(testEmbeddingConfig(server.URL + "/v1"))
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "query")
	assert.Error(t, err)
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	server := newEmbeddingServer(t, 8, nil) // server returns 8-dim vectors
	defer server.Close()

	svc, err := NewEmbeddingService(testEmbeddingConfig(server.URL + "/v1")) // expects 4
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), "query")
	assert.Error(t, err)
}
