package store

import "github.com/pkg/errors"

// TestType is the category tag of an assessment.
type TestType string

const (
	// TestTypeKnowledge marks Knowledge & Skills assessments (K-type).
	TestTypeKnowledge TestType = "K"
	// TestTypePersonality marks Personality & Behavior assessments (P-type).
	TestTypePersonality TestType = "P"
)

// IsValid reports whether the test type is one of the two known tags.
func (t TestType) IsValid() bool {
	return t == TestTypeKnowledge || t == TestTypePersonality
}

// DisplayName returns the human-readable name of the test type.
func (t TestType) DisplayName() string {
	if t == TestTypePersonality {
		return "Personality & Behavior"
	}
	return "Knowledge & Skills"
}

// ErrAssessmentNotFound is returned when an assessment identifier is unknown.
var ErrAssessmentNotFound = errors.New("assessment not found")

// Assessment is a single catalog item. Identifiers are immutable once the
// catalog is built; duration and support flags are opaque payload carried
// through to API responses and never consulted by ranking.
type Assessment struct {
	ID              string
	Name            string
	URL             string
	TestType        TestType
	Category        string
	Description     string
	DurationMinutes int
	RemoteSupport   bool
	AdaptiveSupport bool
}

// EmbeddingText is the text embedded for this assessment: name, category and
// description joined the same way at index build and rebuild time.
func (a *Assessment) EmbeddingText() string {
	return a.Name + " " + a.Category + " " + a.Description
}

// AssessmentEmbedding pairs an assessment identifier with its persisted
// embedding vector and the model that produced it.
type AssessmentEmbedding struct {
	AssessmentID string
	Model        string
	Vector       []float32
}
