package ai

import (
	"github.com/papyrus-lab/papyrus/pkg/common"
)

// DefaultEntityTypes is the recommended (not closed) entity vocabulary
// offered to the extraction model.
var DefaultEntityTypes = []string{
	"person", "concept", "technology", "organization", "method", "publication", "location", "event",
}

type extractEntity struct {
	ID          string   `json:"id" jsonschema_description:"Stable lowercase slug identifying the entity"`
	Name        string   `json:"name" jsonschema_description:"Entity name as it appears in the text"`
	Type        string   `json:"type" jsonschema_description:"One of the provided entity types"`
	Description string   `json:"description" jsonschema_description:"What the passage says about the entity"`
	Title       string   `json:"title,omitempty" jsonschema_description:"Publication title, for publication entities"`
	Authors     []string `json:"authors,omitempty" jsonschema_description:"Publication authors, for publication entities"`
	Journal     string   `json:"journal,omitempty" jsonschema_description:"Journal or venue, for publication entities"`
	Year        int      `json:"year,omitempty" jsonschema_description:"Publication year, for publication entities"`
	DOI         string   `json:"doi,omitempty" jsonschema_description:"DOI, for publication entities"`
	Confidence  float64  `json:"confidence" jsonschema_description:"Extraction confidence between 0 and 1"`
}

type extractRelationship struct {
	Source     string  `json:"source" jsonschema_description:"Id of the source entity from step 1"`
	Target     string  `json:"target" jsonschema_description:"Id of the target entity from step 1"`
	Type       string  `json:"type" jsonschema_description:"Short uppercase relationship verb phrase"`
	Context    string  `json:"context" jsonschema_description:"Text snippet supporting the relationship"`
	Confidence float64 `json:"confidence" jsonschema_description:"Extraction confidence between 0 and 1"`
}

// ExtractResponse is the structured output format both model adapters
// request from their backends.
type ExtractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the passage"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the passage"`
}

// Records converts the wire response into the raw records the validator
// consumes. Publication metadata lands in the entity property map.
func (r ExtractResponse) Records() ([]common.RawEntity, []common.RawRelationship) {
	entities := make([]common.RawEntity, 0, len(r.Entities))
	for _, e := range r.Entities {
		properties := map[string]any{}
		if e.Description != "" {
			properties["description"] = e.Description
		}
		if e.Title != "" {
			properties["title"] = e.Title
		}
		if len(e.Authors) > 0 {
			properties["authors"] = e.Authors
		}
		if e.Journal != "" {
			properties["journal"] = e.Journal
		}
		if e.Year != 0 {
			properties["year"] = e.Year
		}
		if e.DOI != "" {
			properties["doi"] = e.DOI
		}

		confidence := e.Confidence
		entities = append(entities, common.RawEntity{
			ID:         e.ID,
			Name:       e.Name,
			Type:       e.Type,
			Properties: properties,
			Confidence: &confidence,
		})
	}

	relationships := make([]common.RawRelationship, 0, len(r.Relationships))
	for _, rel := range r.Relationships {
		confidence := rel.Confidence
		relationships = append(relationships, common.RawRelationship{
			Source:     rel.Source,
			Target:     rel.Target,
			Type:       rel.Type,
			Context:    rel.Context,
			Confidence: &confidence,
		})
	}

	return entities, relationships
}
