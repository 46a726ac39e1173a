package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinequery/cinequery/internal/config"
)

// fakeLLMServer mimics the two OpenAI-compatible endpoints the client uses.
func fakeLLMServer(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var models []string

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		models = append(models, body.Model)

		require.NotEmpty(t, body.Messages)
		assert.Equal(t, "system", body.Messages[0].Role)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"model":   body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": "BOTH"},
			}},
		})
	})
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		models = append(models, body.Model)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  body.Model,
			"data": []map[string]any{{
				"object":    "embedding",
				"index":     0,
				"embedding": []float64{0.25, -0.5, 0.75},
			}},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &models
}

func testClient(t *testing.T) (*Client, *[]string) {
	server, models := fakeLLMServer(t)
	client := New(config.LLMConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		Model:          "test-model",
		EmbeddingModel: "test-embed",
	})
	return client, models
}

func TestGenerate(t *testing.T) {
	client, models := testClient(t)

	out, err := client.Generate(context.Background(), "you are a router", "classify this")
	require.NoError(t, err)
	assert.Equal(t, "BOTH", out)
	assert.Equal(t, []string{"test-model"}, *models)
}

func TestEmbed(t *testing.T) {
	client, models := testClient(t)

	vec, err := client.Embed(context.Background(), "movies about time travel")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 0.75}, vec)
	assert.Equal(t, []string{"test-embed"}, *models)
}

func TestGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := New(config.LLMConfig{BaseURL: server.URL, APIKey: "k", Model: "m", EmbeddingModel: "e"})

	_, err := client.Generate(context.Background(), "s", "p")
	assert.Error(t, err)

	_, err = client.Embed(context.Background(), "t")
	assert.Error(t, err)
}

func TestGenerateUnreachable(t *testing.T) {
	client := New(config.LLMConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k", Model: "m", EmbeddingModel: "e"})

	_, err := client.Generate(context.Background(), "s", "p")
	assert.Error(t, err)
}
