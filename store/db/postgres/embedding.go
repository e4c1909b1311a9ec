package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/store"
)

func (d *DB) UpsertAssessmentEmbedding(ctx context.Context, embedding *store.AssessmentEmbedding) error {
	stmt := `
		INSERT INTO assessment_embedding (assessment_id, model, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (assessment_id, model) DO UPDATE SET
			embedding = EXCLUDED.embedding
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		embedding.AssessmentID, embedding.Model, pgvector.NewVector(embedding.Vector),
	); err != nil {
		return errors.Wrapf(err, "failed to upsert embedding for %s", embedding.AssessmentID)
	}
	return nil
}

// ListAssessmentEmbeddings returns embeddings for the given model in catalog
// (row_order) order.
func (d *DB) ListAssessmentEmbeddings(ctx context.Context, model string) ([]*store.AssessmentEmbedding, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT e.assessment_id, e.model, e.embedding
		FROM assessment_embedding e
		JOIN assessment a ON a.id = e.assessment_id
		WHERE e.model = $1
		ORDER BY a.row_order`, model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assessment embeddings")
	}
	defer rows.Close()

	var list []*store.AssessmentEmbedding
	for rows.Next() {
		var embedding store.AssessmentEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&embedding.AssessmentID, &embedding.Model, &vec); err != nil {
			return nil, errors.Wrap(err, "failed to scan assessment embedding")
		}
		embedding.Vector = vec.Slice()
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate assessment embeddings")
	}
	return list, nil
}

func (d *DB) DeleteAssessmentEmbeddings(ctx context.Context, model string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM assessment_embedding WHERE model = $1`, model); err != nil {
		return errors.Wrap(err, "failed to delete assessment embeddings")
	}
	return nil
}
