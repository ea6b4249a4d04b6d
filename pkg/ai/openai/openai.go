package openai

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const defaultMaxConcurrentRequests = 15

// IngestOpenAIClient talks to OpenAI-compatible endpoints for entity
// extraction and embeddings. Separate clients allow the two workloads to
// target different deployments.
//
// An IngestOpenAIClient should be created using NewIngestOpenAIClient.
type IngestOpenAIClient struct {
	embeddingModel  string
	extractionModel string

	embeddingDim int
	timeoutMin   int

	reqLock *semaphore.Weighted

	ChatClient      *openai.Client
	EmbeddingClient *openai.Client
}

// NewIngestOpenAIClientParams configures an IngestOpenAIClient. URL fields
// may point at any OpenAI-compatible server; an empty URL uses the default
// endpoint.
type NewIngestOpenAIClientParams struct {
	EmbeddingModel  string
	ExtractionModel string

	EmbeddingURL string
	EmbeddingKey string
	ChatURL      string
	ChatKey      string

	EmbeddingDimensions   int
	RequestTimeoutMinutes int
	MaxConcurrentRequests int64
}

// NewIngestOpenAIClient creates a client for the configured models. The
// internal semaphore bounds concurrent requests across both workloads.
func NewIngestOpenAIClient(params NewIngestOpenAIClientParams) *IngestOpenAIClient {
	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRequests
	}
	dim := params.EmbeddingDimensions
	if dim <= 0 {
		dim = defaultDimensions
	}
	timeoutMin := params.RequestTimeoutMinutes
	if timeoutMin <= 0 {
		timeoutMin = 5
	}

	return &IngestOpenAIClient{
		embeddingModel:  params.EmbeddingModel,
		extractionModel: params.ExtractionModel,
		embeddingDim:    dim,
		timeoutMin:      timeoutMin,
		reqLock:         semaphore.NewWeighted(maxConcurrent),
		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
		EmbeddingClient: newOpenaiClient(params.EmbeddingURL, params.EmbeddingKey),
	}
}

func newOpenaiClient(baseURL string, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)
	return &client
}
