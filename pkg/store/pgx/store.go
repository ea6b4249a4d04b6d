package pgx

import (
	"context"
	"sync"

	"github.com/papyrus-lab/papyrus/pkg/ai"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// IngestDBStorage implements the store.GraphStorage and store.VectorStorage
// interfaces on PostgreSQL with pgvector. The AI client supplies chunk
// embeddings; maxParallel bounds concurrent embedding calls per batch.
type IngestDBStorage struct {
	conn        pgxIConn
	aiClient    ai.IngestAIClient
	maxParallel int
	dbLock      sync.Mutex
}

// NewIngestDBStorageParams configures an IngestDBStorage.
type NewIngestDBStorageParams struct {
	AIClient ai.IngestAIClient

	// MaxParallelEmbeddings bounds concurrent embedding requests issued
	// while storing one document's chunks. Defaults to 8.
	MaxParallelEmbeddings int
}

// NewIngestDBStorageWithConnection creates an IngestDBStorage on an existing
// database connection or pool.
func NewIngestDBStorageWithConnection(
	conn pgxIConn,
	params NewIngestDBStorageParams,
) *IngestDBStorage {
	maxParallel := params.MaxParallelEmbeddings
	if maxParallel <= 0 {
		maxParallel = 8
	}
	return &IngestDBStorage{
		conn:        conn,
		aiClient:    params.AIClient,
		maxParallel: maxParallel,
	}
}
