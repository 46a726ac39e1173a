// Package llm wraps the OpenAI-compatible endpoint used for answer phrasing,
// intent classification, text-to-SQL and query embedding. The endpoint is a
// black box that may be slow or fail; callers own their fallbacks.
package llm

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/cinequery/cinequery/internal/config"
)

// Client is a thin wrapper over the OpenAI-compatible API.
type Client struct {
	api            openai.Client
	model          string
	embeddingModel string
}

// New creates a client against the configured base URL. Works with any
// OpenAI-compatible server (Ollama, vLLM, OpenAI itself).
func New(cfg config.LLMConfig) *Client {
	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &Client{
		api:            openai.NewClient(opts...),
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
	}
}

// Generate runs a single chat completion with temperature 0. Classification
// and SQL generation need determinism more than flair.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding returned no data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
