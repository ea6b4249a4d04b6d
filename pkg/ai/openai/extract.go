package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/papyrus-lab/papyrus/pkg/ai"
	"github.com/papyrus-lab/papyrus/pkg/common"

	"github.com/openai/openai-go/v3"
)

// Extract runs structured entity/relationship extraction over a passage of
// text. The response format is pinned with a JSON schema; malformed model
// output is repaired before unmarshaling.
func (c *IngestOpenAIClient) Extract(
	ctx context.Context,
	text string,
	opts ...ai.GenerateOption,
) ([]common.RawEntity, []common.RawRelationship, error) {
	if c.ChatClient == nil {
		return nil, nil, fmt.Errorf("extraction client not configured")
	}

	options := ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0.1,
	}
	for _, o := range opts {
		o(&options)
	}

	schema := ai.GenerateSchema(ai.ExtractResponse{})
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        ai.ExtractionSchemaName,
		Description: openai.String(ai.ExtractionSchemaDescription),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	msgs := []openai.ChatCompletionMessageParamUnion{}
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(text))

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(options.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, nil, err
	}
	defer c.reqLock.Release(1)

	response, err := c.ChatClient.Chat.Completions.New(rCtx, body)
	if err != nil {
		return nil, nil, err
	}

	if len(response.Choices) == 0 {
		return nil, nil, fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return nil, nil, fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}

	var res ai.ExtractResponse
	if err := ai.UnmarshalFlexible(message, &res); err != nil {
		return nil, nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	entities, relationships := res.Records()
	return entities, relationships, nil
}
