package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangecodee/SHL-TASK/ai"
	"github.com/strangecodee/SHL-TASK/ai/vector"
	"github.com/strangecodee/SHL-TASK/internal/profile"
	"github.com/strangecodee/SHL-TASK/store"
	"github.com/strangecodee/SHL-TASK/store/db/sqlite"
)

type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fixedEmbedder) Dimensions() int { return 3 }

func newTestService(t *testing.T) *APIV1Service {
	t.Helper()

	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "shlrec_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	ctx := context.Background()
	require.NoError(t, driver.Migrate(ctx))

	storeInstance := store.New(driver, p)
	assessments := []*store.Assessment{
		{ID: "java-programming", Name: "Java Programming", URL: "https://shl.example/products/java-programming", TestType: store.TestTypeKnowledge, Category: "Technical", Description: "Core Java", DurationMinutes: 40, RemoteSupport: true},
		{ID: "sql-database", Name: "SQL Database", URL: "https://shl.example/products/sql-database", TestType: store.TestTypeKnowledge, Category: "Technical", Description: "SQL skills"},
		{ID: "teamwork", Name: "Teamwork", URL: "https://shl.example/products/teamwork", TestType: store.TestTypePersonality, Category: "Behavioral", Description: "Collaboration", AdaptiveSupport: true},
	}
	for _, a := range assessments {
		require.NoError(t, storeInstance.UpsertAssessment(ctx, a))
	}

	index, err := vector.Build([]vector.Entry{
		{ID: "java-programming", Vector: []float32{1, 0, 0}},
		{ID: "sql-database", Vector: []float32{0, 1, 0}},
		{ID: "teamwork", Vector: []float32{0.7, 0.7, 0}},
	})
	require.NoError(t, err)

	embedder := &fixedEmbedder{vectors: map[string][]float32{
		"hiring a well rounded engineer": {0.9, 0.3, 0},
	}}
	recommender, err := ai.NewRecommender(embedder, index, storeInstance, nil, nil, ai.RetrievalConfig{TopK: 20, FinalCount: 10})
	require.NoError(t, err)

	return NewAPIV1Service(p, storeInstance, recommender)
}

func doRecommend(t *testing.T, service *APIV1Service, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, service.Recommend(e.NewContext(req, rec))
}

func TestRecommendEndpoint(t *testing.T) {
	service := newTestService(t)

	rec, err := doRecommend(t, service, `{"query": "hiring a well rounded engineer"}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var response RecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotEmpty(t, response.RecommendedAssessments)

	first := response.RecommendedAssessments[0]
	assert.Equal(t, "Java Programming", first.Name)
	assert.Equal(t, "https://shl.example/products/java-programming", first.URL)
	assert.Equal(t, "Yes", first.RemoteSupport)
	assert.Equal(t, "No", first.AdaptiveSupport)
	assert.Equal(t, 40, first.Duration)
	assert.Equal(t, []string{"Knowledge & Skills"}, first.TestType)

	seen := make(map[string]bool)
	for _, a := range response.RecommendedAssessments {
		assert.False(t, seen[a.URL], "duplicate recommendation %s", a.URL)
		seen[a.URL] = true
		assert.NotEmpty(t, a.TestType)
		assert.Greater(t, a.Duration, 0)
	}
}

func TestRecommendEndpointValidation(t *testing.T) {
	service := newTestService(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty query", `{"query": ""}`},
		{"whitespace query", `{"query": "   "}`},
		{"negative top_k", `{"query": "hiring", "top_k": -1}`},
		{"malformed json", `{"query": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doRecommend(t, service, tt.body)
			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusBadRequest, httpErr.Code)
		})
	}
}

func TestRecommendEndpointUninitialized(t *testing.T) {
	service := NewAPIV1Service(&profile.Profile{Mode: "dev"}, nil, nil)

	_, err := doRecommend(t, service, `{"query": "hiring"}`)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.Code)
}

func TestHealthEndpoint(t *testing.T) {
	service := newTestService(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, service.Health(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)

	uninitialized := NewAPIV1Service(&profile.Profile{Mode: "dev"}, nil, nil)
	rec = httptest.NewRecorder()
	require.NoError(t, uninitialized.Health(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
