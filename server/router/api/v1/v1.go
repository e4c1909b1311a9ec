package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/ai"
	"github.com/strangecodee/SHL-TASK/internal/profile"
	"github.com/strangecodee/SHL-TASK/internal/version"
	"github.com/strangecodee/SHL-TASK/store"
)

type APIV1Service struct {
	Profile     *profile.Profile
	Store       *store.Store
	Recommender *ai.Recommender
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, recommender *ai.Recommender) *APIV1Service {
	return &APIV1Service{
		Profile:     profile,
		Store:       store,
		Recommender: recommender,
	}
}

func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/", s.Root)
	e.GET("/healthz", s.Health)
	e.POST("/api/v1/recommend", s.Recommend)
}

type RecommendationRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	FinalCount int    `json:"final_count"`
}

type AssessmentResponse struct {
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	AdaptiveSupport string   `json:"adaptive_support"`
	Description     string   `json:"description"`
	Duration        int      `json:"duration"`
	RemoteSupport   string   `json:"remote_support"`
	TestType        []string `json:"test_type"`
}

type RecommendationResponse struct {
	RecommendedAssessments []AssessmentResponse `json:"recommended_assessments"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (s *APIV1Service) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service": "SHL Assessment Recommendation System",
		"version": version.GetCurrentVersion(s.Profile.Mode),
		"status":  "operational",
		"endpoints": map[string]string{
			"health":    "GET /healthz",
			"recommend": "POST /api/v1/recommend",
		},
	})
}

func (s *APIV1Service) Health(c echo.Context) error {
	if s.Recommender == nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "unhealthy",
			Message: "recommendation pipeline not initialized",
		})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Message: "system operational"})
}

func (s *APIV1Service) Recommend(c echo.Context) error {
	if s.Recommender == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "recommendation pipeline not initialized")
	}

	request := &RecommendationRequest{
		TopK:       s.Recommender.DefaultTopK(),
		FinalCount: s.Recommender.DefaultFinalCount(),
	}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	candidates, err := s.Recommender.Recommend(ctx, request.Query, request.TopK, request.FinalCount)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrInvalidRequest):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ai.ErrServiceUnavailable):
			return echo.NewHTTPError(http.StatusServiceUnavailable, "recommendation backend unavailable")
		default:
			slog.Error("recommendation failed", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	response := &RecommendationResponse{
		RecommendedAssessments: make([]AssessmentResponse, 0, len(candidates)),
	}
	for _, candidate := range candidates {
		assessment, err := s.Store.GetAssessment(ctx, candidate.ID)
		if err != nil {
			slog.Warn("recommended assessment missing from catalog", "id", candidate.ID)
			continue
		}
		response.RecommendedAssessments = append(response.RecommendedAssessments, toAssessmentResponse(assessment))
	}
	return c.JSON(http.StatusOK, response)
}

func toAssessmentResponse(a *store.Assessment) AssessmentResponse {
	duration := a.DurationMinutes
	if duration <= 0 {
		duration = 30
	}
	return AssessmentResponse{
		Name:            a.Name,
		URL:             a.URL,
		AdaptiveSupport: yesNo(a.AdaptiveSupport),
		Description:     a.Description,
		Duration:        duration,
		RemoteSupport:   yesNo(a.RemoteSupport),
		TestType:        []string{a.TestType.DisplayName()},
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
