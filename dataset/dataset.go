// Package dataset loads the assessment catalog and labeled query sets from
// CSV files and writes prediction exports.
package dataset

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/ai/eval"
	"github.com/strangecodee/SHL-TASK/store"
)

// Prediction is one exported row of the predictions CSV.
type Prediction struct {
	Query         string
	AssessmentURL string
}

// table is a header-indexed view over CSV records.
type table struct {
	columns map[string]int
	rows    [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	t := &table{columns: columns}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) get(row []string, column string) string {
	i, ok := t.columns[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// AssessmentIDFromURL derives a stable catalog identifier from the last
// non-empty path segment of the assessment URL.
func AssessmentIDFromURL(url string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.ToLower(trimmed)
}

// LoadCatalog reads and normalizes the assessment catalog CSV. Rows are
// deduplicated by URL (first occurrence wins), text fields are trimmed,
// a missing category defaults to General and an unknown test type to K.
func LoadCatalog(path string) ([]store.Assessment, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	for _, required := range []string{"assessment_name", "assessment_url"} {
		if !t.has(required) {
			return nil, errors.Errorf("catalog %s is missing column %q", path, required)
		}
	}

	seen := make(map[string]struct{}, len(t.rows))
	assessments := make([]store.Assessment, 0, len(t.rows))
	for _, row := range t.rows {
		url := t.get(row, "assessment_url")
		name := t.get(row, "assessment_name")
		if url == "" || name == "" {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		category := t.get(row, "category")
		if category == "" {
			category = "General"
		}
		testType := store.TestType(t.get(row, "test_type"))
		if !testType.IsValid() {
			testType = store.TestTypeKnowledge
		}

		a := store.Assessment{
			ID:          AssessmentIDFromURL(url),
			Name:        name,
			URL:         url,
			TestType:    testType,
			Category:    category,
			Description: t.get(row, "description"),
		}
		if v := t.get(row, "duration_minutes"); v != "" {
			if minutes, err := strconv.Atoi(v); err == nil {
				a.DurationMinutes = minutes
			}
		}
		a.RemoteSupport = parseFlag(t.get(row, "remote_support"))
		a.AdaptiveSupport = parseFlag(t.get(row, "adaptive_support"))
		assessments = append(assessments, a)
	}
	return assessments, nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// LoadTrainQueries reads the labeled query CSV and resolves the
// semicolon-separated relevant URLs to catalog identifiers. URLs absent
// from the catalog are logged and dropped from the ground truth.
func LoadTrainQueries(path string, catalog []store.Assessment) ([]eval.LabeledQuery, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if !t.has("query") {
		return nil, errors.Errorf("train set %s is missing column %q", path, "query")
	}

	byURL := make(map[string]string, len(catalog))
	for _, a := range catalog {
		byURL[a.URL] = a.ID
	}

	var queries []eval.LabeledQuery
	for _, row := range t.rows {
		query := t.get(row, "query")
		if query == "" {
			continue
		}
		labeled := eval.LabeledQuery{Query: query}
		for _, url := range strings.Split(t.get(row, "relevant_urls"), ";") {
			url = strings.TrimSpace(url)
			if url == "" {
				continue
			}
			id, ok := byURL[url]
			if !ok {
				slog.Warn("relevant url not in catalog", "url", url)
				continue
			}
			labeled.RelevantIDs = append(labeled.RelevantIDs, id)
		}
		queries = append(queries, labeled)
	}
	return queries, nil
}

// LoadTestQueries reads the unlabeled query CSV.
func LoadTestQueries(path string) ([]string, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	if !t.has("query") {
		return nil, errors.Errorf("test set %s is missing column %q", path, "query")
	}

	var queries []string
	for _, row := range t.rows {
		if q := t.get(row, "query"); q != "" {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

// WritePredictions writes the export CSV in the strict Query,Assessment_url
// format, one row per recommended assessment.
func WritePredictions(path string, predictions []Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Query", "Assessment_url"}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, p := range predictions {
		if p.AssessmentURL == "" {
			f.Close()
			return errors.Errorf("empty assessment url for query %q", p.Query)
		}
		if err := w.Write([]string{p.Query, p.AssessmentURL}); err != nil {
			f.Close()
			return errors.Wrap(err, "write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, "flush")
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
