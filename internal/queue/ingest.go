package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/papyrus-lab/papyrus/internal/storage"
	"github.com/papyrus-lab/papyrus/internal/util"
	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/logger"
	"github.com/papyrus-lab/papyrus/pkg/pipeline"
	"github.com/papyrus-lab/papyrus/pkg/segment"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-playground/validator"
)

// IngestDocumentMsg is the payload of one ingest_queue message. TextKey is
// the object key of the document's pre-extracted plain text.
type IngestDocumentMsg struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title" validate:"required"`
	Type       string `json:"type"`
	TextKey    string `json:"text_key" validate:"required"`
	DOI        string `json:"doi"`
	Journal    string `json:"journal"`
	Year       int    `json:"year"`

	Strategy  string `json:"strategy"`
	ChunkSize int    `json:"chunk_size"`
}

var msgValidator = validator.New()

// ProcessIngestMessage handles one queue delivery end-to-end: validate the
// payload, fetch the document text from object storage and run the pipeline.
// A returned error routes the message to the retry queue.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	pipelineClient *pipeline.Client,
	msg string,
) error {
	data := new(IngestDocumentMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed ingest message: %w", err)
	}
	if err := msgValidator.Struct(data); err != nil {
		return fmt.Errorf("invalid ingest message: %w", err)
	}

	text, err := util.RetryWithContext(ctx, 3, func(ctx context.Context) ([]byte, error) {
		return storage.GetFile(ctx, s3Client, data.TextKey)
	})
	if err != nil {
		return fmt.Errorf("failed to load document text %s: %w", data.TextKey, err)
	}

	doc := pipeline.Document{
		Record: common.DocumentRecord{
			ID:      data.DocumentID,
			Title:   data.Title,
			Type:    data.Type,
			Path:    data.TextKey,
			DOI:     data.DOI,
			Journal: data.Journal,
			Year:    data.Year,
		},
		Text: string(text),
	}
	if data.Strategy != "" || data.ChunkSize > 0 {
		cfg := SegmentConfigFromMsg(data)
		doc.Segment = &cfg
	}

	start := time.Now()
	result := pipelineClient.IngestDocument(ctx, doc)
	if !result.Success {
		if result.TimedOut {
			logger.Warn("[Queue] Document timed out with partial results",
				"document_id", result.DocumentID,
				"chunks", result.ChunkCount,
				"entities", result.EntityCount,
			)
		}
		return fmt.Errorf("ingestion failed for %q: %s", data.Title, result.Error)
	}

	logger.Info("[Queue] Ingest message processed",
		"document_id", result.DocumentID,
		"chunks", result.ChunkCount,
		"entities", result.EntityCount,
		"relationships", result.RelationCount,
		"duration", time.Since(start),
	)
	return nil
}

// SegmentConfigFromMsg maps the optional strategy fields of a message onto
// a segmenter config, leaving package defaults in place when absent.
func SegmentConfigFromMsg(data *IngestDocumentMsg) segment.Config {
	return segment.Config{
		Strategy:        segment.Strategy(data.Strategy),
		TargetChunkSize: data.ChunkSize,
	}
}
