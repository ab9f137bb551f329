// Package advice asks an LLM for short coaching notes based on the user's
// current day assignment and recent logs.
package advice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// llmClient handles interactions with OpenAI GPT models.
type llmClient struct {
	client openai.Client
	logger *slog.Logger
}

// newLLMClient creates a new OpenAI client.
func newLLMClient(apiKey string, logger *slog.Logger) *llmClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &llmClient{
		client: client,
		logger: logger,
	}
}

// Complete sends a chat completion request and returns the text of the first
// choice.
func (c *llmClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModelGPT4o,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}

	c.logger.DebugContext(ctx, "sending chat completion request",
		"model", openai.ChatModelGPT4o)

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.ErrorContext(ctx, "openai chat completion failed", "error", err)
		return "", err
	}

	c.logger.DebugContext(ctx, "received chat completion response",
		"completion_tokens", completion.Usage.CompletionTokens,
		"prompt_tokens", completion.Usage.PromptTokens)

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("empty completion response")
	}
	return completion.Choices[0].Message.Content, nil
}
