package ollama

import (
	"context"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// GenerateEmbedding creates a vector embedding for one input using the
// configured embedding model on Ollama. Blank inputs produce a zero vector
// of the configured dimension.
func (c *IngestOllamaClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, c.embeddingDim), nil
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.Client.Embed(rCtx, &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: string(input),
	})
	if err != nil {
		return nil, err
	}

	out := make([]float32, 0, c.embeddingDim)
	for _, v := range res.Embeddings {
		for _, val := range v {
			if len(out) >= c.embeddingDim {
				break
			}
			out = append(out, float32(val))
		}
	}
	return out, nil
}

// GenerateEmbeddings embeds multiple inputs sequentially. The Ollama embed
// endpoint handles one input per call here; the semaphore inside
// GenerateEmbedding bounds the server load.
func (c *IngestOllamaClient) GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, input := range inputs {
		emb, err := c.GenerateEmbedding(ctx, input)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}
