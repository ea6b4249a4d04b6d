package store

import (
	"context"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// GraphStorage persists validated entities and relationships for a document.
// Writes are idempotent: entities upsert by public id within a document and
// relationship edges are identified by (source, target, type).
type GraphStorage interface {
	// StoreDocument upserts the document node and returns its public id,
	// generating one when the record arrives without an id.
	StoreDocument(ctx context.Context, document common.DocumentRecord) (string, error)

	// StoreEntities persists a validated batch. Relationships referencing
	// ids absent from the batch are stored against placeholder nodes and
	// reported as dangling edges rather than rejected.
	StoreEntities(ctx context.Context, entities []common.Entity, relationships []common.Relationship, document common.DocumentRecord) (common.StoreEntitiesResult, error)

	// GetEntityByPublicID fetches one entity of a document by its public id.
	GetEntityByPublicID(ctx context.Context, documentID string, publicID string) (common.Entity, error)
}

// ChunkMatch is a similarity-search hit from the vector store.
type ChunkMatch struct {
	VectorKey   string  `json:"vector_key"`
	DocumentID  string  `json:"document_id"`
	ChunkNumber int     `json:"chunk_number"`
	Content     string  `json:"content"`
	SectionType string  `json:"section_type"`
	Distance    float64 `json:"distance"`
}

// VectorStorage embeds and persists document chunks for similarity search.
// Each chunk is stored under the key {documentId}_{chunkNumber}; re-storing
// a key overwrites the prior vector and metadata.
type VectorStorage interface {
	// StoreVectors embeds and upserts the chunks of one document. A failed
	// chunk does not fail the batch; failures are counted in the result.
	StoreVectors(ctx context.Context, document common.DocumentRecord, chunks []common.Chunk) (common.StoreVectorsResult, error)

	// SearchSimilarChunks returns the topK nearest chunks to the query
	// embedding. An empty documentID searches across all documents.
	SearchSimilarChunks(ctx context.Context, embedding []float32, documentID string, topK int) ([]ChunkMatch, error)
}
