package postgres

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
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			url = EXCLUDED.url,
			test_type = EXCLUDED.test_type,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			duration_minutes = EXCLUDED.duration_minutes,
			remote_support = EXCLUDED.remote_support,
			adaptive_support = EXCLUDED.adaptive_support
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		assessment.ID,
		assessment.Name,
		assessment.URL,
		string(assessment.TestType),
		assessment.Category,
		assessment.Description,
		assessment.DurationMinutes,
		assessment.RemoteSupport,
		assessment.AdaptiveSupport,
	); err != nil {
		return errors.Wrapf(err, "failed to upsert assessment %s", assessment.ID)
	}
	return nil
}

func (d *DB) GetAssessment(ctx context.Context, id string) (*store.Assessment, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, url, test_type, category, description,
			duration_minutes, remote_support, adaptive_support
		FROM assessment WHERE id = $1`, id)

	assessment, err := scanAssessment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get assessment %s", id)
	}
	return assessment, nil
}

// ListAssessments returns the catalog in insertion (row_order) order.
func (d *DB) ListAssessments(ctx context.Context) ([]*store.Assessment, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, url, test_type, category, description,
			duration_minutes, remote_support, adaptive_support
		FROM assessment ORDER BY row_order`)
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
	if err := scan(
		&assessment.ID,
		&assessment.Name,
		&assessment.URL,
		&testType,
		&assessment.Category,
		&assessment.Description,
		&assessment.DurationMinutes,
		&assessment.RemoteSupport,
		&assessment.AdaptiveSupport,
	); err != nil {
		return nil, err
	}
	assessment.TestType = store.TestType(testType)
	return &assessment, nil
}
