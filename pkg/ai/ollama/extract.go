package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/papyrus-lab/papyrus/pkg/ai"
	"github.com/papyrus-lab/papyrus/pkg/common"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

// Extract runs structured entity/relationship extraction via the Ollama
// chat endpoint, pinning the response with a JSON schema format.
func (c *IngestOllamaClient) Extract(
	ctx context.Context,
	text string,
	opts ...ai.GenerateOption,
) ([]common.RawEntity, []common.RawRelationship, error) {
	options := ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	schemaObj := ai.GenerateSchema(ai.ExtractResponse{})
	formatBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, nil, err
	}
	var format json.RawMessage = formatBytes

	prompt := text
	if len(options.SystemPrompts) > 0 {
		prompt = strings.Join(options.SystemPrompts, "\n\n") + "\n\n" + text
	}

	stream := false
	req := &api.ChatRequest{
		Model: options.Model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Format:  format,
		Options: map[string]any{"temperature": options.Temperature},
	}

	// Grow the context window for long passages; Ollama defaults to 4096.
	tokens := 200
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, nil, err
	}
	tokens += len(enc.Encode(prompt, nil, nil))
	if tokens > 4096 {
		req.Options["num_ctx"] = tokens
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, nil, err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}

	if final.Message.Content == "" {
		return nil, nil, fmt.Errorf("empty response from model %s", options.Model)
	}

	var res ai.ExtractResponse
	if err := ai.UnmarshalFlexible(final.Message.Content, &res); err != nil {
		return nil, nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	entities, relationships := res.Records()
	return entities, relationships, nil
}
