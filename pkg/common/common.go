package common

// Chunk represents a contiguous span of a document's text produced by the
// segmenter. Chunks are immutable once created: the vector writer consumes
// them as-is and the position fields always refer back into the original
// source text.
//
// ChunkNumber is 1-based and strictly increasing in emission order within
// a single document.
type Chunk struct {
	Content     string `json:"content"`
	StartPos    int    `json:"start_pos"`
	EndPos      int    `json:"end_pos"`
	ChunkNumber int    `json:"chunk_number"`
	SectionType string `json:"section_type"`
	Strategy    string `json:"strategy"`
}

// Entity represents a node in the knowledge graph. The type vocabulary is
// open (person, concept, technology, organization, method, publication, ...);
// types outside the recommended list are accepted and stored as-is.
//
// Entities are never mutated after validation. Re-extraction under the same
// ID produces a new version that the graph writer applies as an upsert.
type Entity struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Confidence float64        `json:"confidence"`
}

// Relationship represents a directed, typed edge between two entities.
// Source and Target hold entity ids; ids that do not resolve within the
// current batch are tolerated and stored against placeholder nodes.
type Relationship struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context"`
}

// RawEntity is an entity record as returned by the extraction collaborator,
// before validation. Any field may be missing or malformed.
type RawEntity struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Confidence *float64       `json:"confidence"`
}

// RawRelationship is a relationship record as returned by the extraction
// collaborator, before validation.
type RawRelationship struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
	Context    string   `json:"context"`
}

// DocumentRecord describes one ingested source document. It is created once
// at ingestion start and referenced by every chunk and entity batch produced
// from that document.
type DocumentRecord struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Type            string `json:"type"`
	Path            string `json:"path,omitempty"`
	DOI             string `json:"doi,omitempty"`
	Journal         string `json:"journal,omitempty"`
	Year            int    `json:"year,omitempty"`
	CitationPreview string `json:"citation_preview,omitempty"`
}

// CoverageStatus classifies a coverage ratio against the corpus quality bar.
type CoverageStatus string

const (
	CoverageGood         CoverageStatus = "good"
	CoverageInsufficient CoverageStatus = "insufficient"
)

// CoverageReport is the derived result of comparing a document's word count
// against the words represented by its stored chunks. It is recomputed on
// demand and never persisted.
type CoverageReport struct {
	CoverageRatio float64        `json:"coverage_ratio"`
	Status        CoverageStatus `json:"status"`
	MeetsStandard bool           `json:"meets_standard"`
	SourceWords   int            `json:"source_words"`
	ChunkWords    int            `json:"chunk_words"`
}

// CitationQualityReport scores a publication entity's citation completeness
// and credibility. OverallScore is scaled to 0-100.
type CitationQualityReport struct {
	CompletenessScore float64  `json:"completeness_score"`
	CredibilityScore  float64  `json:"credibility_score"`
	OverallScore      float64  `json:"overall_score"`
	MissingFields     []string `json:"missing_fields"`
	Warnings          []string `json:"warnings"`
	Recommendations   []string `json:"recommendations"`
	CitationPreview   string   `json:"citation_preview"`
}

// BatchCitationReport aggregates citation quality across all publication
// entities in a document batch.
type BatchCitationReport struct {
	OverallQuality  float64                 `json:"overall_quality"`
	IntegrityStatus string                  `json:"research_integrity_status"`
	MissingCitation bool                    `json:"missing_citation"`
	Reports         []CitationQualityReport `json:"reports"`
}

// StoreEntitiesResult reports the outcome of a graph ingestion write.
// Success is authoritative: callers never need to inspect errors to
// determine the outcome of a batch.
type StoreEntitiesResult struct {
	Success              bool     `json:"success"`
	Message              string   `json:"message"`
	Error                string   `json:"error,omitempty"`
	DocumentID           string   `json:"document_id"`
	EntitiesCreated      int      `json:"entities_created"`
	EntitiesUpdated      int      `json:"entities_updated"`
	RelationshipsCreated int      `json:"relationships_created"`
	DanglingEdges        []string `json:"dangling_edges,omitempty"`
}

// StoreVectorsResult reports the outcome of a vector ingestion write.
// Individual chunk failures are counted rather than failing the batch.
type StoreVectorsResult struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	Error         string  `json:"error,omitempty"`
	DocumentID    string  `json:"document_id"`
	VectorsStored int     `json:"vectors_stored"`
	ChunksFailed  int     `json:"chunks_failed"`
	SuccessRate   float64 `json:"success_rate"`
}
