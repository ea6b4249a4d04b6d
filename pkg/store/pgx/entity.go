package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/papyrus-lab/papyrus/internal/util"
	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/logger"

	pgxv5 "github.com/jackc/pgx/v5"
)

// PlaceholderEntityID is the reserved public id used when a relationship
// endpoint arrives empty. Dangling references to a concrete id reuse that id
// for their placeholder so a later extraction pass upgrades the node in
// place.
const PlaceholderEntityID = "unknown-entity"

const upsertEntitySQL = `
INSERT INTO entities (document_id, public_id, name, entity_type, properties, confidence, placeholder)
VALUES ($1, $2, $3, $4, $5, $6, FALSE)
ON CONFLICT (document_id, public_id) DO UPDATE SET
	name = EXCLUDED.name,
	entity_type = EXCLUDED.entity_type,
	properties = EXCLUDED.properties,
	confidence = EXCLUDED.confidence,
	placeholder = FALSE,
	updated_at = now()
RETURNING id, (xmax = 0) AS inserted`

// Placeholder upserts must never clobber a real entity that already holds
// the id, so the conflict branch only bumps the timestamp.
const upsertPlaceholderSQL = `
INSERT INTO entities (document_id, public_id, name, entity_type, properties, confidence, placeholder)
VALUES ($1, $2, $2, 'unknown', '{}', 0, TRUE)
ON CONFLICT (document_id, public_id) DO UPDATE SET updated_at = now()
RETURNING id`

const insertRelationshipSQL = `
INSERT INTO relationships (document_id, source_id, target_id, rel_type, confidence, context)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (source_id, target_id, rel_type) DO NOTHING
RETURNING id`

// StoreEntities persists a validated batch of entities and relationship
// edges for one document inside a single transaction.
//
// Entity writes are idempotent per public id: re-ingesting an id updates the
// node instead of duplicating it. Edges are identified by
// (source, target, type); duplicates are not re-created. Endpoints that do
// not resolve within the batch are stored against placeholder nodes and
// listed as dangling edges in the result.
func (s *IngestDBStorage) StoreEntities(
	ctx context.Context,
	entities []common.Entity,
	relationships []common.Relationship,
	document common.DocumentRecord,
) (common.StoreEntitiesResult, error) {
	fail := func(err error) (common.StoreEntitiesResult, error) {
		return common.StoreEntitiesResult{
			Success:    false,
			Message:    "graph ingestion failed",
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

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fail(err)
	}
	defer tx.Rollback(ctx)

	merged := mergeEntitiesByID(entities)
	logger.Debug("[Store][StoreEntities] Upserting entities", "document_id", documentID, "entities", len(merged))

	created := 0
	updated := 0
	rowIDs := make(map[string]int64, len(merged))

	for _, entity := range merged {
		properties, err := json.Marshal(entity.Properties)
		if err != nil {
			return fail(fmt.Errorf("failed to encode properties for entity %s: %w", entity.ID, err))
		}

		var rowID int64
		var inserted bool
		err = tx.QueryRow(ctx, upsertEntitySQL,
			docRowID,
			entity.ID,
			util.SanitizePostgresText(entity.Name),
			entity.Type,
			properties,
			entity.Confidence,
		).Scan(&rowID, &inserted)
		if err != nil {
			return fail(fmt.Errorf("failed to upsert entity %s: %w", entity.ID, err))
		}

		rowIDs[entity.ID] = rowID
		if inserted {
			created++
		} else {
			updated++
		}
	}

	relationshipsCreated := 0
	var dangling []string

	for _, rel := range relationships {
		sourceID, sourceDangling := resolveEndpoint(rel.Source)
		targetID, targetDangling := resolveEndpoint(rel.Target)

		sourceRow, ok := rowIDs[sourceID]
		if !ok || sourceDangling {
			sourceRow, err = s.upsertPlaceholder(ctx, tx, docRowID, sourceID)
			if err != nil {
				return fail(err)
			}
			rowIDs[sourceID] = sourceRow
			dangling = append(dangling, sourceID)
		}
		targetRow, ok := rowIDs[targetID]
		if !ok || targetDangling {
			targetRow, err = s.upsertPlaceholder(ctx, tx, docRowID, targetID)
			if err != nil {
				return fail(err)
			}
			rowIDs[targetID] = targetRow
			dangling = append(dangling, targetID)
		}

		rows, err := tx.Query(ctx, insertRelationshipSQL,
			docRowID,
			sourceRow,
			targetRow,
			rel.Type,
			rel.Confidence,
			util.SanitizePostgresText(rel.Context),
		)
		if err != nil {
			return fail(fmt.Errorf("failed to insert relationship %s->%s: %w", sourceID, targetID, err))
		}
		if rows.Next() {
			relationshipsCreated++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fail(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fail(err)
	}

	logger.Info("[Store][StoreEntities] Batch stored",
		"document_id", documentID,
		"entities_created", created,
		"entities_updated", updated,
		"relationships_created", relationshipsCreated,
		"dangling_edges", len(dangling),
	)

	return common.StoreEntitiesResult{
		Success:              true,
		Message:              fmt.Sprintf("stored %d entities and %d relationships", created+updated, relationshipsCreated),
		DocumentID:           documentID,
		EntitiesCreated:      created,
		EntitiesUpdated:      updated,
		RelationshipsCreated: relationshipsCreated,
		DanglingEdges:        dedupeStrings(dangling),
	}, nil
}

func (s *IngestDBStorage) upsertPlaceholder(ctx context.Context, tx pgxv5.Tx, docRowID int64, publicID string) (int64, error) {
	var rowID int64
	err := tx.QueryRow(ctx, upsertPlaceholderSQL, docRowID, publicID).Scan(&rowID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert placeholder for %s: %w", publicID, err)
	}
	return rowID, nil
}

// resolveEndpoint substitutes the reserved placeholder id for an empty
// endpoint and reports whether the reference is dangling by construction.
func resolveEndpoint(id string) (string, bool) {
	if id == "" {
		return PlaceholderEntityID, true
	}
	return id, false
}

// mergeEntitiesByID collapses duplicate ids within a batch, merging property
// maps with later records winning per key.
func mergeEntitiesByID(entities []common.Entity) []common.Entity {
	index := make(map[string]int, len(entities))
	merged := make([]common.Entity, 0, len(entities))

	for _, entity := range entities {
		at, seen := index[entity.ID]
		if !seen {
			index[entity.ID] = len(merged)
			merged = append(merged, entity)
			continue
		}

		prior := merged[at]
		props := make(map[string]any, len(prior.Properties)+len(entity.Properties))
		for k, v := range prior.Properties {
			props[k] = v
		}
		for k, v := range entity.Properties {
			props[k] = v
		}
		prior.Properties = props
		prior.Name = entity.Name
		prior.Type = entity.Type
		prior.Confidence = entity.Confidence
		merged[at] = prior
	}

	return merged
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

const getEntitySQL = `
SELECT e.public_id, e.name, e.entity_type, e.properties, e.confidence
FROM entities e
JOIN documents d ON d.id = e.document_id
WHERE d.public_id = $1 AND e.public_id = $2`

// GetEntityByPublicID fetches one entity of a document by its public id.
func (s *IngestDBStorage) GetEntityByPublicID(ctx context.Context, documentID string, publicID string) (common.Entity, error) {
	var entity common.Entity
	var properties []byte

	err := s.conn.QueryRow(ctx, getEntitySQL, documentID, publicID).Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		&properties,
		&entity.Confidence,
	)
	if err != nil {
		return common.Entity{}, fmt.Errorf("entity %s not found in document %s: %w", publicID, documentID, err)
	}

	if err := json.Unmarshal(properties, &entity.Properties); err != nil {
		return common.Entity{}, fmt.Errorf("failed to decode properties of entity %s: %w", publicID, err)
	}
	return entity, nil
}
