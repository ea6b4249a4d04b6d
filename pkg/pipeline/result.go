package pipeline

import (
	"time"

	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/segment"
)

// Document is one unit of work for the pipeline: a document record plus its
// extracted plain text. Segment, when set, overrides the client's default
// segmentation config for this document only.
type Document struct {
	Record  common.DocumentRecord
	Text    string
	Segment *segment.Config
}

// IngestResult reports the outcome of one document's ingestion run. Success
// is authoritative; on timeout the result carries whatever was stored before
// the deadline.
type IngestResult struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Error      string        `json:"error,omitempty"`
	DocumentID string        `json:"document_id"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	Duration   time.Duration `json:"duration"`

	ChunkCount    int                         `json:"chunk_count"`
	EntityCount   int                         `json:"entity_count"`
	RelationCount int                         `json:"relation_count"`
	Coverage      *common.CoverageReport      `json:"coverage,omitempty"`
	Citations     *common.BatchCitationReport `json:"citations,omitempty"`
	Graph         *common.StoreEntitiesResult `json:"graph,omitempty"`
	Vectors       *common.StoreVectorsResult  `json:"vectors,omitempty"`
}
