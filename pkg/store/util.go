package store

import (
	"context"
	"fmt"

	"github.com/papyrus-lab/papyrus/pkg/ai"

	"golang.org/x/sync/errgroup"
)

// ChunkRange invokes fn over [start,end) windows of at most chunkSize
// elements, in order, stopping at the first error.
func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// GenerateEmbeddings embeds all inputs through the client's batch fast path.
// If batching fails the inputs are retried individually so one bad input
// does not sink the rest.
func GenerateEmbeddings(
	ctx context.Context,
	client ai.IngestAIClient,
	inputs [][]byte,
) ([][]float32, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	if out, err := client.GenerateEmbeddings(ctx, inputs); err == nil {
		return out, nil
	}

	out := make([][]float32, len(inputs))
	eg, ectx := errgroup.WithContext(ctx)
	for i := range inputs {
		idx := i
		in := inputs[i]
		eg.Go(func() error {
			emb, err := client.GenerateEmbedding(ectx, in)
			if err != nil {
				return err
			}
			out[idx] = emb
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
