package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/store"
)

func (d *DB) UpsertAssessment(ctx context.Context, assessment *store.Assessment) error {
	stmt := `
		INSERT INTO assessment (
			id, name, url, test_type, category, description,
			duration_minutes, remote_support, adaptive_support
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			test_type = excluded.test_type,
			category = excluded.category,
			description = excluded.description,
			duration_minutes = excluded.duration_minutes,
			remote_support = excluded.remote_support,
			adaptive_support = excluded.adaptive_support
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		assessment.ID,
		assessment.Name,
		assessment.URL,
		string(assessment.TestType),
		assessment.Category,
		assessment.Description,
		assessment.DurationMinutes,
		boolToInt(assessment.RemoteSupport),
		boolToInt(assessment.AdaptiveSupport),
	); err != nil {
		return errors.Wrapf(err, "failed to upsert assessment %s", assessment.ID)
	}
	return nil
}

func (d *DB) GetAssessment(ctx context.Context, id string) (*store.Assessment, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, url, test_type, category, description,
			duration_minutes, remote_support, adaptive_support
		FROM assessment WHERE id = ?`, id)

	assessment, err := scanAssessment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get assessment %s", id)
	}
	return assessment, nil
}

// ListAssessments returns the catalog in insertion (rowid) order, which is
// the stable ordering the vector index and tie-breaking rely on.
func (d *DB) ListAssessments(ctx context.Context) ([]*store.Assessment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, url, test_type, category, description,
			duration_minutes, remote_support, adaptive_support
		FROM assessment ORDER BY rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assessments")
	}
	defer rows.Close()

	var list []*store.Assessment
	for rows.Next() {
		assessment, err := scanAssessment(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan assessment")
		}
		list = append(list, assessment)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate assessments")
	}
	return list, nil
}

func scanAssessment(scan func(dest ...any) error) (*store.Assessment, error) {
	var assessment store.Assessment
	var testType string
	var remote, adaptive int
	if err := scan(
		&assessment.ID,
		&assessment.Name,
		&assessment.URL,
		&testType,
		&assessment.Category,
		&assessment.Description,
		&assessment.DurationMinutes,
		&remote,
		&adaptive,
	); err != nil {
		return nil, err
	}
	assessment.TestType = store.TestType(testType)
	assessment.RemoteSupport = remote != 0
	assessment.AdaptiveSupport = adaptive != 0
	return &assessment, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
