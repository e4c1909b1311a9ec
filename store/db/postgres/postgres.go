package postgres

import (
	"context"
	"database/sql"
	"strconv"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/strangecodee/SHL-TASK/internal/profile"
	"github.com/strangecodee/SHL-TASK/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection with the DSN from the profile.
// Embeddings are stored in a pgvector column, so the vector extension must
// be installable on the target database.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	postgresDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	postgresDB.SetMaxOpenConns(10)
	postgresDB.SetMaxIdleConns(5)

	driver := DB{db: postgresDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the catalog and embedding tables if they do not exist.
// The embedding column dimension follows the configured embedding model.
func (d *DB) Migrate(ctx context.Context) error {
	dimensions := d.profile.AIEmbeddingDimensions
	if dimensions <= 0 {
		return errors.New("embedding dimensions must be configured for the postgres driver")
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS assessment (
			id TEXT PRIMARY KEY,
			row_order SERIAL,
			name TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			test_type TEXT NOT NULL DEFAULT 'K',
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			duration_minutes INTEGER NOT NULL DEFAULT 0,
			remote_support BOOLEAN NOT NULL DEFAULT TRUE,
			adaptive_support BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS assessment_embedding (
			assessment_id TEXT NOT NULL REFERENCES assessment(id) ON DELETE CASCADE,
			model TEXT NOT NULL,
			embedding vector(` + strconv.Itoa(dimensions) + `) NOT NULL,
			PRIMARY KEY (assessment_id, model)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to run migration")
		}
	}
	return nil
}
