package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangecodee/SHL-TASK/store"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAssessmentIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.shl.com/solutions/products/java-programming", "java-programming"},
		{"https://www.shl.com/solutions/products/Java-Programming/", "java-programming"},
		{"  https://example.com/a/b/c  ", "c"},
		{"bare-slug", "bare-slug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AssessmentIDFromURL(tt.url))
	}
}

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "catalog.csv",
		"assessment_name,assessment_url,test_type,description,category,duration_minutes,remote_support,adaptive_support\n"+
			"Java Programming ,https://shl.example/products/java-programming,K,Core Java test,Technical,40,Yes,No\n"+
			"Teamwork,https://shl.example/products/teamwork,P,Collaboration styles,Behavioral,25,yes,yes\n"+
			"Teamwork Duplicate,https://shl.example/products/teamwork,P,dup,Behavioral,25,no,no\n"+
			"Mystery Type,https://shl.example/products/mystery,X,,,0,,\n")

	assessments, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, assessments, 3)

	java := assessments[0]
	assert.Equal(t, "java-programming", java.ID)
	assert.Equal(t, "Java Programming", java.Name)
	assert.Equal(t, store.TestTypeKnowledge, java.TestType)
	assert.Equal(t, 40, java.DurationMinutes)
	assert.True(t, java.RemoteSupport)
	assert.False(t, java.AdaptiveSupport)

	assert.Equal(t, "Teamwork", assessments[1].Name, "first occurrence wins on duplicate URL")

	mystery := assessments[2]
	assert.Equal(t, store.TestTypeKnowledge, mystery.TestType, "unknown test type defaults to K")
	assert.Equal(t, "General", mystery.Category)
}

func TestLoadCatalogMissingColumn(t *testing.T) {
	path := writeFile(t, "catalog.csv", "assessment_name,description\nJava,desc\n")
	_, err := LoadCatalog(path)
	assert.Error(t, err)
}

func TestLoadTrainQueries(t *testing.T) {
	catalog := []store.Assessment{
		{ID: "java-programming", URL: "https://shl.example/products/java-programming"},
		{ID: "teamwork", URL: "https://shl.example/products/teamwork"},
	}
	path := writeFile(t, "train.csv",
		"query,relevant_urls\n"+
			"hiring java devs,https://shl.example/products/java-programming;https://shl.example/products/teamwork\n"+
			"unknown urls,https://shl.example/products/not-in-catalog\n")

	queries, err := LoadTrainQueries(path, catalog)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, []string{"java-programming", "teamwork"}, queries[0].RelevantIDs)
	assert.Empty(t, queries[1].RelevantIDs, "unresolvable urls are dropped")
}

func TestLoadTestQueries(t *testing.T) {
	path := writeFile(t, "test.csv", "query\nfirst query\n\nsecond query\n")
	queries, err := LoadTestQueries(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"first query", "second query"}, queries)
}

func TestWritePredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	err := WritePredictions(path, []Prediction{
		{Query: "hiring java devs", AssessmentURL: "https://shl.example/products/java-programming"},
		{Query: "hiring java devs", AssessmentURL: "https://shl.example/products/teamwork"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Query,Assessment_url\n"+
			"hiring java devs,https://shl.example/products/java-programming\n"+
			"hiring java devs,https://shl.example/products/teamwork\n",
		string(content))

	err = WritePredictions(path, []Prediction{{Query: "q"}})
	assert.Error(t, err, "empty url rejected")
}
