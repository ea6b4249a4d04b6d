package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultDimensions = 4096

	// maxEmbeddingTokens clips inputs to a context window every common
	// embedding model can handle.
	maxEmbeddingTokens = 8000

	tokenEncoding = "o200k_base"
)

// GenerateEmbedding creates a vector embedding for one input text using the
// configured embedding model. Blank inputs produce a zero vector of the
// configured dimension rather than an API call.
func (c *IngestOpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	res, err := c.GenerateEmbeddings(ctx, [][]byte{input})
	if err != nil {
		return nil, err
	}
	if len(res) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(res))
	}
	return res[0], nil
}

// GenerateEmbeddings creates embeddings for multiple inputs in a single
// request, preserving input order. Inputs longer than the embedding model's
// context window are clipped at a token boundary before upload.
func (c *IngestOpenAIClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	if c.EmbeddingClient == nil {
		return nil, fmt.Errorf("embedding client not configured")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	idxMap, stringsIn, out, err := normalizeEmbeddingInputs(inputs, c.embeddingDim)
	if err != nil {
		return nil, err
	}
	if len(stringsIn) == 0 {
		return out, nil
	}

	stringsOut, err := c.generateEmbeddingsForStrings(ctx, stringsIn)
	if err != nil {
		return nil, err
	}
	if len(stringsOut) != len(stringsIn) {
		return nil, fmt.Errorf("embedding result size mismatch: got %d want %d", len(stringsOut), len(stringsIn))
	}
	for i := range stringsOut {
		out[idxMap[i]] = stringsOut[i]
	}
	return out, nil
}

// normalizeEmbeddingInputs maps blank inputs straight to zero vectors and
// token-clips the rest, returning the compacted request list plus an index
// map back into the original order.
func normalizeEmbeddingInputs(inputs [][]byte, dim int) (idxMap []int, stringsIn []string, out [][]float32, err error) {
	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		return nil, nil, nil, err
	}

	idxMap = make([]int, 0, len(inputs))
	stringsIn = make([]string, 0, len(inputs))
	out = make([][]float32, len(inputs))
	for i, in := range inputs {
		text := string(in)
		if strings.TrimSpace(text) == "" {
			out[i] = make([]float32, dim)
			continue
		}
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) > maxEmbeddingTokens {
			text = enc.Decode(tokens[:maxEmbeddingTokens])
		}
		idxMap = append(idxMap, i)
		stringsIn = append(stringsIn, text)
	}
	return idxMap, stringsIn, out, nil
}

func (c *IngestOpenAIClient) generateEmbeddingsForStrings(ctx context.Context, inputs []string) ([][]float32, error) {
	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: c.embeddingModel,
	}

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	response, err := c.EmbeddingClient.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, err
	}

	if len(response.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response size mismatch: got %d want %d", len(response.Data), len(inputs))
	}

	dim := c.embeddingDim
	out := make([][]float32, len(inputs))
	for _, embedding := range response.Data {
		dataIdx := int(embedding.Index)
		if dataIdx < 0 || dataIdx >= len(inputs) {
			return nil, fmt.Errorf("embedding index out of range: %d", embedding.Index)
		}
		vec := make([]float32, 0, dim)
		for _, v := range embedding.Embedding {
			if len(vec) >= dim {
				break
			}
			vec = append(vec, float32(v))
		}
		if len(vec) < dim {
			padded := make([]float32, dim)
			copy(padded, vec)
			vec = padded
		}
		out[dataIdx] = vec
	}
	for i := range out {
		if out[i] == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return out, nil
}
