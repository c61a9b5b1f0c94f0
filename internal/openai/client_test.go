package openai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingAPI struct {
	embedding []float32
	err       error
	lastText  string
}

func (f *fakeEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return f.embedding, nil
}

func TestClient_GenerateEmbedding(t *testing.T) {
	api := &fakeEmbeddingAPI{embedding: make([]float32, 8)}
	client := NewClientWithAPI(api, "text-embedding-ada-002", 8)

	embedding, err := client.GenerateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, embedding, 8)
	assert.Equal(t, "hello", api.lastText)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClientWithAPI(&fakeEmbeddingAPI{}, "text-embedding-ada-002", 8)

	_, err := client.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	api := &fakeEmbeddingAPI{embedding: make([]float32, 4)}
	client := NewClientWithAPI(api, "text-embedding-ada-002", 8)

	_, err := client.GenerateEmbedding(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	apiErr := errors.New("rate limited")
	client := NewClientWithAPI(&fakeEmbeddingAPI{err: apiErr}, "text-embedding-ada-002", 8)

	_, err := client.GenerateEmbedding(context.Background(), "hello")
	assert.ErrorIs(t, err, apiErr)
}

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(Config{APIKey: "sk-test"})

	assert.Equal(t, string(DefaultEmbeddingModel), client.Model())
	assert.Equal(t, DefaultEmbeddingDimensions, client.Dimensions())

	client = NewClientWithConfig(Config{
		APIKey:              "sk-test",
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 512,
	})
	assert.Equal(t, "text-embedding-3-small", client.Model())
	assert.Equal(t, 512, client.Dimensions())
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

type fakeCompletionAPI struct {
	content string
	err     error
	lastReq openai.ChatCompletionRequest
}

func (f *fakeCompletionAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestCompletionClient_Complete(t *testing.T) {
	api := &fakeCompletionAPI{content: "Savings accounts earn bonus interest."}
	client := NewCompletionClientWithAPI(api, "gpt-4o-mini")

	answer, err := client.Complete(context.Background(), "What do savings accounts earn?")
	require.NoError(t, err)
	assert.Equal(t, "Savings accounts earn bonus interest.", answer)

	assert.Equal(t, "gpt-4o-mini", api.lastReq.Model)
	require.Len(t, api.lastReq.Messages, 1)
	assert.Equal(t, openai.ChatMessageRoleUser, api.lastReq.Messages[0].Role)
	assert.Equal(t, "What do savings accounts earn?", api.lastReq.Messages[0].Content)
}

func TestCompletionClient_Complete_EmptyPrompt(t *testing.T) {
	client := NewCompletionClientWithAPI(&fakeCompletionAPI{}, "")

	_, err := client.Complete(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestCompletionClient_Complete_NoChoices(t *testing.T) {
	api := &noChoicesAPI{}
	client := NewCompletionClientWithAPI(api, "")

	_, err := client.Complete(context.Background(), "prompt")
	assert.ErrorContains(t, err, "no completion choices")
}

func TestNewCompletionClientWithAPI_DefaultModel(t *testing.T) {
	client := NewCompletionClientWithAPI(&fakeCompletionAPI{}, "")
	assert.Equal(t, DefaultGenerationModel, client.model)
}

type noChoicesAPI struct{}

func (noChoicesAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}
