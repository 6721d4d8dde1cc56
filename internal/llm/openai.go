package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient talks to the OpenAI chat completions API. The same client
// type also backs DeepSeek, whose API is OpenAI-compatible behind a
// different base URL.
type OpenAIClient struct {
	name   string
	model  string
	client openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		name:   ProviderOpenAI,
		model:  "gpt-4o-mini",
		client: openai.NewClient(option.WithAPIKey(apiKey)),
	}
}

func NewDeepSeekClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		name:  ProviderDeepSeek,
		model: "deepseek-chat",
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL("https://api.deepseek.com"),
		),
	}
}

func (c *OpenAIClient) Name() string {
	return c.name
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       c.model,
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", &ProviderError{Provider: c.name, Err: err}
	}
	if len(completion.Choices) == 0 {
		return "", &ProviderError{Provider: c.name, Err: fmt.Errorf("empty response")}
	}
	return completion.Choices[0].Message.Content, nil
}
