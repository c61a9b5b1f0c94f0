package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultGenerationModel is the chat model used when none is configured
const DefaultGenerationModel = openai.GPT4oMini

// ErrEmptyPrompt is returned when the assembled prompt is empty
var ErrEmptyPrompt = errors.New("prompt cannot be empty")

// CompletionAPI defines the interface for language-model completion
type CompletionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// CompletionClient wraps the OpenAI chat completion API
type CompletionClient struct {
	api   CompletionAPI
	model string
}

// NewCompletionClient creates a new chat completion client
func NewCompletionClient(apiKey, model string) *CompletionClient {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &CompletionClient{
		api:   openai.NewClient(apiKey),
		model: model,
	}
}

// NewCompletionClientWithAPI creates a client over an explicit API, used in tests
func NewCompletionClientWithAPI(api CompletionAPI, model string) *CompletionClient {
	if model == "" {
		model = DefaultGenerationModel
	}
	return &CompletionClient{api: api, model: model}
}

// Complete sends the assembled prompt as a single user message and returns
// the model's text.
func (c *CompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}

	return resp.Choices[0].Message.Content, nil
}
