package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/papyrus-lab/papyrus/internal/util"
	"github.com/papyrus-lab/papyrus/pkg/ai"
	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/coverage"
	"github.com/papyrus-lab/papyrus/pkg/logger"
	"github.com/papyrus-lab/papyrus/pkg/segment"
	"github.com/papyrus-lab/papyrus/pkg/store"
	"github.com/papyrus-lab/papyrus/pkg/validate"

	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelDocs = 3
	defaultDocTimeout   = 10 * time.Minute
	defaultMaxRetries   = 3
)

// Client sequences segmentation, extraction, validation and storage for
// documents. Documents are processed end-to-end by a single worker each,
// with at most ParallelDocs in flight.
type Client struct {
	aiClient    ai.IngestAIClient
	graphStore  store.GraphStorage
	vectorStore store.VectorStorage

	segmentCfg   segment.Config
	parallelDocs int
	docTimeout   time.Duration
	maxRetries   int
}

type NewClientParams struct {
	AIClient    ai.IngestAIClient
	GraphStore  store.GraphStorage
	VectorStore store.VectorStorage

	// SegmentConfig is passed through to the segmenter. The zero value uses
	// hierarchical segmentation with the default chunk size.
	SegmentConfig segment.Config

	ParallelDocs int           // max documents in flight, default 3
	DocTimeout   time.Duration // per-document deadline, default 10m
	MaxRetries   int           // extraction retries per chunk, default 3
}

func NewClient(params NewClientParams) (*Client, error) {
	if params.AIClient == nil {
		return nil, errors.New("ai client is required")
	}
	if params.GraphStore == nil {
		return nil, errors.New("graph store is required")
	}
	if params.VectorStore == nil {
		return nil, errors.New("vector store is required")
	}

	if params.ParallelDocs <= 0 {
		params.ParallelDocs = defaultParallelDocs
	}
	if params.DocTimeout <= 0 {
		params.DocTimeout = defaultDocTimeout
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = defaultMaxRetries
	}

	return &Client{
		aiClient:     params.AIClient,
		graphStore:   params.GraphStore,
		vectorStore:  params.VectorStore,
		segmentCfg:   params.SegmentConfig,
		parallelDocs: params.ParallelDocs,
		docTimeout:   params.DocTimeout,
		maxRetries:   params.MaxRetries,
	}, nil
}

// IngestDocuments processes a batch of documents with bounded parallelism.
// The returned slice is index-aligned with the input; one failed document
// never aborts the rest.
func (c *Client) IngestDocuments(ctx context.Context, docs []Document) []IngestResult {
	results := make([]IngestResult, len(docs))

	eg := new(errgroup.Group)
	eg.SetLimit(c.parallelDocs)
	for i := range docs {
		idx := i
		eg.Go(func() error {
			results[idx] = c.IngestDocument(ctx, docs[idx])
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// IngestDocument runs one document through the full pipeline under the
// per-document timeout. On timeout the result reports what was stored before
// the deadline instead of discarding it.
func (c *Client) IngestDocument(ctx context.Context, doc Document) IngestResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.docTimeout)
	defer cancel()

	result := IngestResult{DocumentID: doc.Record.ID}
	finish := func(success bool, message string, err error) IngestResult {
		result.Success = success
		result.Message = message
		result.Duration = time.Since(start)
		if err != nil {
			result.Error = err.Error()
			if errors.Is(err, context.DeadlineExceeded) {
				result.TimedOut = true
			}
		}
		return result
	}

	segmentCfg := c.segmentCfg
	if doc.Segment != nil {
		segmentCfg = *doc.Segment
	}

	chunks := segment.Segment(doc.Text, segmentCfg)
	if len(chunks) == 0 {
		return finish(false, "document produced no chunks", errors.New("document text is empty or too short"))
	}
	result.ChunkCount = len(chunks)

	report := coverage.ValidateCoverage(doc.Text, chunks)
	result.Coverage = &report
	if report.Status == common.CoverageInsufficient {
		logger.Warn("[Pipeline] Coverage below standard",
			"document_id", doc.Record.ID, "coverage_ratio", report.CoverageRatio)
	}

	entities, relationships, err := c.extractAll(ctx, doc, chunks)
	if err != nil {
		return finish(false, "extraction failed", err)
	}

	var validEntities []common.Entity
	var validRelationships []common.Relationship
	if len(entities) > 0 {
		validEntities, err = validate.ValidateEntities(entities)
		if err != nil {
			return finish(false, "entity validation failed", err)
		}
		validRelationships = validate.ValidateRelationships(relationships)

		citations := validate.AssessBatchCitationQuality(validEntities)
		result.Citations = &citations
	} else {
		logger.Info("[Pipeline] No entities extracted, skipping graph write", "document_id", doc.Record.ID)
	}
	result.EntityCount = len(validEntities)
	result.RelationCount = len(validRelationships)

	if len(validEntities) > 0 {
		graphResult, err := c.graphStore.StoreEntities(ctx, validEntities, validRelationships, doc.Record)
		result.Graph = &graphResult
		if err != nil {
			return finish(false, "graph ingestion failed", err)
		}
		if doc.Record.ID == "" {
			result.DocumentID = graphResult.DocumentID
			doc.Record.ID = graphResult.DocumentID
		}
	}

	vectorResult, err := c.vectorStore.StoreVectors(ctx, doc.Record, chunks)
	result.Vectors = &vectorResult
	if err != nil {
		return finish(false, "vector ingestion failed", err)
	}
	if result.DocumentID == "" {
		result.DocumentID = vectorResult.DocumentID
	}

	logger.Info("[Pipeline] Document ingested",
		"document_id", result.DocumentID,
		"chunks", result.ChunkCount,
		"entities", result.EntityCount,
		"relationships", result.RelationCount,
		"duration", time.Since(start),
	)

	return finish(true, fmt.Sprintf("ingested %d chunks, %d entities", result.ChunkCount, result.EntityCount), nil)
}

// extractAll runs the extraction collaborator over every chunk sequentially,
// retrying transient failures, and accumulates the raw records of the whole
// document. Records extracted under the same id across chunks are merged
// later by the graph writer's upsert.
func (c *Client) extractAll(
	ctx context.Context,
	doc Document,
	chunks []common.Chunk,
) ([]common.RawEntity, []common.RawRelationship, error) {
	var entities []common.RawEntity
	var relationships []common.RawRelationship

	types := strings.Join(ai.DefaultEntityTypes, ", ")
	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(fmt.Sprintf(ai.ExtractPrompt, doc.Record.Title, types, types)),
	}

	for _, chunk := range chunks {
		content := chunk.Content
		ents, rels, err := util.Retry2WithContext(ctx, c.maxRetries,
			func(ctx context.Context) ([]common.RawEntity, []common.RawRelationship, error) {
				return c.aiClient.Extract(ctx, content, opts...)
			})
		if err != nil {
			return nil, nil, fmt.Errorf("extraction failed for chunk %d: %w", chunk.ChunkNumber, err)
		}

		entities = append(entities, ents...)
		relationships = append(relationships, rels...)
	}

	return entities, relationships, nil
}
