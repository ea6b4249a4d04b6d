package pgx

import (
	"context"
	"fmt"
	"sync"

	"github.com/papyrus-lab/papyrus/internal/util"
	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/logger"
	"github.com/papyrus-lab/papyrus/pkg/store"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

const upsertChunkSQL = `
INSERT INTO document_chunks (vector_key, document_id, chunk_number, content, start_pos, end_pos, section_type, strategy, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (vector_key) DO UPDATE SET
	content = EXCLUDED.content,
	start_pos = EXCLUDED.start_pos,
	end_pos = EXCLUDED.end_pos,
	section_type = EXCLUDED.section_type,
	strategy = EXCLUDED.strategy,
	embedding = EXCLUDED.embedding,
	updated_at = now()`

// embedBatchSize bounds how many chunk contents go into one batch
// embedding request.
const embedBatchSize = 100

// VectorKey builds the storage key for one chunk of a document. Re-storing
// the same key overwrites the prior vector and metadata.
func VectorKey(documentID string, chunkNumber int) string {
	return fmt.Sprintf("%s_%d", documentID, chunkNumber)
}

// StoreVectors embeds each chunk exactly once and upserts it under
// {documentId}_{chunkNumber}. Chunks are embedded in windows through the
// batch fast path; a window that fails falls back to per-chunk embedding,
// bounded by the storage's parallelism limit.
//
// A chunk that fails to embed or store does not fail the batch: the writer
// continues with the remaining chunks and reports the split in the result.
func (s *IngestDBStorage) StoreVectors(
	ctx context.Context,
	document common.DocumentRecord,
	chunks []common.Chunk,
) (common.StoreVectorsResult, error) {
	fail := func(err error) (common.StoreVectorsResult, error) {
		return common.StoreVectorsResult{
			Success:    false,
			Message:    "vector ingestion failed",
			Error:      err.Error(),
			DocumentID: document.ID,
		}, err
	}

	documentID, err := s.StoreDocument(ctx, document)
	if err != nil {
		return fail(err)
	}
	docRowID, err := s.documentRowID(ctx, documentID)
	if err != nil {
		return fail(err)
	}

	if len(chunks) == 0 {
		return common.StoreVectorsResult{
			Success:     true,
			Message:     "no chunks to store",
			DocumentID:  documentID,
			SuccessRate: 1.0,
		}, nil
	}

	logger.Debug("[Store][StoreVectors] Embedding chunks", "document_id", documentID, "chunks", len(chunks))

	inputs := make([][]byte, len(chunks))
	for i := range chunks {
		inputs[i] = []byte(chunks[i].Content)
	}

	embeddings := make([][]float32, len(chunks))
	var failedMu sync.Mutex
	failed := make(map[int]struct{})

	err = store.ChunkRange(len(chunks), embedBatchSize, func(start, end int) error {
		batch, err := store.GenerateEmbeddings(ctx, s.aiClient, inputs[start:end])
		if err == nil {
			copy(embeddings[start:end], batch)
			return nil
		}
		logger.Warn("[Store][StoreVectors] Batch embedding failed, embedding chunks individually",
			"document_id", documentID, "start", start, "end", end, "err", err)

		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(s.maxParallel)
		for i := start; i < end; i++ {
			idx := i
			eg.Go(func() error {
				emb, err := s.aiClient.GenerateEmbedding(ectx, inputs[idx])
				if err != nil {
					logger.Warn("[Store][StoreVectors] Chunk embedding failed",
						"document_id", documentID, "chunk", chunks[idx].ChunkNumber, "err", err)
					failedMu.Lock()
					failed[idx] = struct{}{}
					failedMu.Unlock()
					return nil
				}
				embeddings[idx] = emb
				return nil
			})
		}
		return eg.Wait()
	})
	if err != nil {
		return fail(err)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	stored := 0
	for i, chunk := range chunks {
		if _, bad := failed[i]; bad {
			continue
		}

		s.dbLock.Lock()
		_, err := s.conn.Exec(ctx, upsertChunkSQL,
			VectorKey(documentID, chunk.ChunkNumber),
			docRowID,
			chunk.ChunkNumber,
			util.SanitizePostgresText(chunk.Content),
			chunk.StartPos,
			chunk.EndPos,
			chunk.SectionType,
			chunk.Strategy,
			pgvector.NewVector(embeddings[i]),
		)
		s.dbLock.Unlock()
		if err != nil {
			logger.Warn("[Store][StoreVectors] Chunk write failed",
				"document_id", documentID, "chunk", chunk.ChunkNumber, "err", err)
			failed[i] = struct{}{}
			continue
		}
		stored++
	}

	successRate := float64(stored) / float64(len(chunks))
	logger.Info("[Store][StoreVectors] Batch stored",
		"document_id", documentID,
		"vectors_stored", stored,
		"chunks_failed", len(failed),
		"success_rate", successRate,
	)

	return common.StoreVectorsResult{
		Success:       stored > 0 || len(chunks) == 0,
		Message:       fmt.Sprintf("stored %d of %d chunks", stored, len(chunks)),
		DocumentID:    documentID,
		VectorsStored: stored,
		ChunksFailed:  len(failed),
		SuccessRate:   successRate,
	}, nil
}

const searchChunksSQL = `
SELECT c.vector_key, d.public_id, c.chunk_number, c.content, c.section_type, c.embedding <=> $1 AS distance
FROM document_chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL AND ($2 = '' OR d.public_id = $2)
ORDER BY distance
LIMIT $3`

// SearchSimilarChunks returns the topK chunks nearest to the query embedding
// by cosine distance. An empty documentID searches the whole corpus.
func (s *IngestDBStorage) SearchSimilarChunks(
	ctx context.Context,
	embedding []float32,
	documentID string,
	topK int,
) ([]store.ChunkMatch, error) {
	if topK <= 0 {
		topK = 10
	}

	rows, err := s.conn.Query(ctx, searchChunksSQL, pgvector.NewVector(embedding), documentID, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity query failed: %w", err)
	}
	defer rows.Close()

	var matches []store.ChunkMatch
	for rows.Next() {
		var m store.ChunkMatch
		if err := rows.Scan(&m.VectorKey, &m.DocumentID, &m.ChunkNumber, &m.Content, &m.SectionType, &m.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
