package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// Assessment catalog. Writes happen only during catalog ingestion;
	// serving reads a catalog that no longer changes.
	UpsertAssessment(ctx context.Context, assessment *Assessment) error
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	ListAssessments(ctx context.Context) ([]*Assessment, error)

	// Assessment embeddings, persisted so the vector index can be rebuilt
	// or reloaded without re-embedding the whole catalog.
	UpsertAssessmentEmbedding(ctx context.Context, embedding *AssessmentEmbedding) error
	ListAssessmentEmbeddings(ctx context.Context, model string) ([]*AssessmentEmbedding, error)
	DeleteAssessmentEmbeddings(ctx context.Context, model string) error
}
