package ai

import (
	"context"

	"github.com/papyrus-lab/papyrus/pkg/common"
)

// GenerateOptions holds configuration for extraction requests.
type GenerateOptions struct {
	Model         string   // Model identifier to use for extraction
	SystemPrompts []string // System prompts prepended to the request
	Temperature   float64  // Sampling temperature
}

// GenerateOption is a functional option for configuring extraction requests.
type GenerateOption func(*GenerateOptions)

// WithModel sets the model used for the request.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		o.Model = model
	}
}

// WithSystemPrompts sets the system prompts prepended to the request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// IngestAIClient bundles the two model collaborators the ingestion core
// depends on: entity/relationship extraction and text embedding. Both are
// synchronous request/response calls from the core's perspective; callers
// bound them with context timeouts.
type IngestAIClient interface {
	// Extract runs entity and relationship extraction over a chunk of text.
	// It may return zero entities. The records are raw and must pass the
	// validator before storage.
	Extract(ctx context.Context, text string, opts ...GenerateOption) ([]common.RawEntity, []common.RawRelationship, error)

	// GenerateEmbedding creates a vector embedding for one input.
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	// GenerateEmbeddings creates embeddings for multiple inputs, preserving
	// input order.
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)
}
