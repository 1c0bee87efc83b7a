// Package llm wraps the external completion API behind a small
// interface so the chat relay can be exercised without network access.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type Completion struct {
	Text  string
	Model string
}

type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
	maxTokens    int
}

func NewOpenAIClient(apiKey string, defaultModel string, maxTokens int) *OpenAIClient {
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
		maxTokens:    maxTokens,
	}
}

// Complete forwards a single-turn prompt. model overrides the default
// when non-empty; the caller bounds ctx.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, model string) (Completion, error) {
	if model == "" {
		model = c.defaultModel
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Completion{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, fmt.Errorf("chat completion: empty response")
	}

	return Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
	}, nil
}
