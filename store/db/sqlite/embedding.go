package sqlite

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/store"
)

// Vectors are stored as BLOBs of little-endian float32 values. The same
// layout is used by the index snapshot, so a vector persisted here reloads
// byte-for-byte identical.

// float32ArrayToBLOB converts a []float32 to a little-endian BLOB.
func float32ArrayToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// blobToFloat32Array converts a BLOB back to a float32 array.
// This is the inverse of float32ArrayToBLOB.
func blobToFloat32Array(blob []byte, dimension int) ([]float32, error) {
	expectedLen := dimension * 4
	if len(blob) != expectedLen {
		return nil, errors.Errorf("invalid BLOB length: got %d, want %d", len(blob), expectedLen)
	}

	vec := make([]float32, dimension)
	for i := 0; i < dimension; i++ {
		bits := binary.LittleEndian.Uint32(blob[i*4 : i*4+4])
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}

func (d *DB) UpsertAssessmentEmbedding(ctx context.Context, embedding *store.AssessmentEmbedding) error {
	stmt := `
		INSERT INTO assessment_embedding (assessment_id, model, dimension, embedding)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (assessment_id, model) DO UPDATE SET
			dimension = excluded.dimension,
			embedding = excluded.embedding
	`
	blob := float32ArrayToBLOB(embedding.Vector)
	if _, err := d.db.ExecContext(ctx, stmt,
		embedding.AssessmentID, embedding.Model, len(embedding.Vector), blob,
	); err != nil {
		return errors.Wrapf(err, "failed to upsert embedding for %s", embedding.AssessmentID)
	}
	return nil
}

// ListAssessmentEmbeddings returns embeddings for the given model in catalog
// (assessment rowid) order.
func (d *DB) ListAssessmentEmbeddings(ctx context.Context, model string) ([]*store.AssessmentEmbedding, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT e.assessment_id, e.model, e.dimension, e.embedding
		FROM assessment_embedding e
		JOIN assessment a ON a.id = e.assessment_id
		WHERE e.model = ?
		ORDER BY a.rowid`, model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list assessment embeddings")
	}
	defer rows.Close()

	var list []*store.AssessmentEmbedding
	for rows.Next() {
		var embedding store.AssessmentEmbedding
		var dimension int
		var blob []byte
		if err := rows.Scan(&embedding.AssessmentID, &embedding.Model, &dimension, &blob); err != nil {
			return nil, errors.Wrap(err, "failed to scan assessment embedding")
		}
		vec, err := blobToFloat32Array(blob, dimension)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt embedding for %s", embedding.AssessmentID)
		}
		embedding.Vector = vec
		list = append(list, &embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate assessment embeddings")
	}
	return list, nil
}

func (d *DB) DeleteAssessmentEmbeddings(ctx context.Context, model string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM assessment_embedding WHERE model = ?`, model); err != nil {
		return errors.Wrap(err, "failed to delete assessment embeddings")
	}
	return nil
}
