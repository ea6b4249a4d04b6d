package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/papyrus-lab/papyrus/pkg/common"
	"github.com/papyrus-lab/papyrus/pkg/logger"
)

// DefaultRelationshipType is assigned to relationships that arrive without
// a type from the extraction collaborator.
const DefaultRelationshipType = "RELATED"

// recommendedEntityTypes is a lint list, not a closed enum. New domains add
// new types at runtime, so off-list types are logged and kept.
var recommendedEntityTypes = map[string]struct{}{
	"person":       {},
	"concept":      {},
	"technology":   {},
	"organization": {},
	"method":       {},
	"publication":  {},
	"location":     {},
	"event":        {},
	"unknown":      {},
}

// ValidateEntities normalizes a batch of raw extraction records into
// entities ready for storage.
//
// The whole batch is rejected only when it is empty or when a record lacks
// a non-empty id or name. Every other missing field is defaulted: type
// "unknown", empty properties, confidence 1.0. Confidence values outside
// [0,1] are clamped.
func ValidateEntities(raw []common.RawEntity) ([]common.Entity, error) {
	if len(raw) == 0 {
		return nil, errors.New("no entities provided")
	}

	entities := make([]common.Entity, 0, len(raw))
	for i, r := range raw {
		id := strings.TrimSpace(r.ID)
		name := strings.TrimSpace(r.Name)
		if id == "" {
			return nil, fmt.Errorf("entity %d has no id", i)
		}
		if name == "" {
			return nil, fmt.Errorf("entity %d (%s) has no name", i, id)
		}

		entityType := strings.TrimSpace(r.Type)
		if entityType == "" {
			entityType = "unknown"
		}
		if _, ok := recommendedEntityTypes[strings.ToLower(entityType)]; !ok {
			logger.Debug("[Validate] Entity type outside recommended vocabulary", "id", id, "type", entityType)
		}

		properties := r.Properties
		if properties == nil {
			properties = map[string]any{}
		}

		entities = append(entities, common.Entity{
			ID:         id,
			Name:       name,
			Type:       entityType,
			Properties: properties,
			Confidence: clampConfidence(r.Confidence),
		})
	}

	return entities, nil
}

// ValidateRelationships normalizes raw relationship records. It never hard
// fails: missing endpoints stay empty and missing types default to
// DefaultRelationshipType, so dangling or malformed edges are stored and
// flagged downstream instead of dropped.
func ValidateRelationships(raw []common.RawRelationship) []common.Relationship {
	relationships := make([]common.Relationship, 0, len(raw))
	for _, r := range raw {
		relType := strings.TrimSpace(r.Type)
		if relType == "" {
			relType = DefaultRelationshipType
		}

		relationships = append(relationships, common.Relationship{
			Source:     strings.TrimSpace(r.Source),
			Target:     strings.TrimSpace(r.Target),
			Type:       relType,
			Confidence: clampConfidence(r.Confidence),
			Context:    r.Context,
		})
	}
	return relationships
}

// clampConfidence defaults a missing confidence to 1.0 and clamps the rest
// into [0,1].
func clampConfidence(confidence *float64) float64 {
	if confidence == nil {
		return 1.0
	}
	c := *confidence
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
