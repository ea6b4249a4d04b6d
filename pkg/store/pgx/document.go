package pgx

import (
	"context"
	"fmt"

	"github.com/papyrus-lab/papyrus/internal/util"
	"github.com/papyrus-lab/papyrus/pkg/common"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const upsertDocumentSQL = `
INSERT INTO documents (public_id, title, doc_type, path, doi, journal, year, citation_preview)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), $8)
ON CONFLICT (public_id) DO UPDATE SET
	title = EXCLUDED.title,
	doc_type = EXCLUDED.doc_type,
	path = EXCLUDED.path,
	doi = EXCLUDED.doi,
	journal = EXCLUDED.journal,
	year = EXCLUDED.year,
	citation_preview = EXCLUDED.citation_preview,
	updated_at = now()
RETURNING id`

// StoreDocument upserts the document node by public id, generating an id
// when the record has none. Returns the public id the caller should use for
// all chunk and entity writes of this document.
func (s *IngestDBStorage) StoreDocument(ctx context.Context, document common.DocumentRecord) (string, error) {
	publicID := document.ID
	if publicID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return "", fmt.Errorf("failed to generate document id: %w", err)
		}
		publicID = id
	}

	var rowID int64
	err := s.conn.QueryRow(ctx, upsertDocumentSQL,
		publicID,
		util.SanitizePostgresText(document.Title),
		document.Type,
		document.Path,
		document.DOI,
		util.SanitizePostgresText(document.Journal),
		document.Year,
		util.SanitizePostgresText(document.CitationPreview),
	).Scan(&rowID)
	if err != nil {
		return "", fmt.Errorf("failed to upsert document: %w", err)
	}

	return publicID, nil
}

// documentRowID resolves a document's internal row id from its public id.
func (s *IngestDBStorage) documentRowID(ctx context.Context, publicID string) (int64, error) {
	var id int64
	err := s.conn.QueryRow(ctx, `SELECT id FROM documents WHERE public_id = $1`, publicID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("document %s not found: %w", publicID, err)
	}
	return id, nil
}
