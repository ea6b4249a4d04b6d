package ollama

import (
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultDimensions            = 4096
	defaultMaxConcurrentRequests = 4
)

// IngestOllamaClient implements the ai.IngestAIClient interface against a
// locally-hosted Ollama server.
type IngestOllamaClient struct {
	embeddingModel  string
	extractionModel string

	embeddingDim int
	timeoutMin   int

	reqLock *semaphore.Weighted

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewIngestOllamaClientParams configures an IngestOllamaClient.
type NewIngestOllamaClientParams struct {
	EmbeddingModel  string
	ExtractionModel string

	BaseURL string
	ApiKey  string

	EmbeddingDimensions   int
	RequestTimeoutMinutes int
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewIngestOllamaClient connects to the Ollama server at BaseURL (or the
// default endpoint when empty) and uses the configured models for
// extraction and embeddings.
func NewIngestOllamaClient(params NewIngestOllamaClientParams) (*IngestOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)
	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

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

	return &IngestOllamaClient{
		embeddingModel:  params.EmbeddingModel,
		extractionModel: params.ExtractionModel,
		embeddingDim:    dim,
		timeoutMin:      timeoutMin,
		reqLock:         semaphore.NewWeighted(maxConcurrent),
		baseURL:         u,
		apiKey:          params.ApiKey,
		httpClient:      httpClient,
		Client:          api.NewClient(u, httpClient),
	}, nil
}
