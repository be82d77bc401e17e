package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI answers every chat completion with content.
func fakeOpenAI(t *testing.T, content string, status int) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 2)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"unavailable","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return openai.NewClientWithConfig(cfg)
}

func TestLLMClassifier(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    IntentTag
		wantErr bool
	}{
		{"plain json", `{"tag":"research_request"}`, IntentResearchRequest, false},
		{"wrapped json", "Sure!\n```json\n{\"tag\": \"module_request\"}\n```", IntentModuleRequest, false},
		{"unknown tag", `{"tag":"book_flight"}`, IntentFallback, true},
		{"not json", "supplier_search", IntentFallback, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := LoadLLMClassifier("", fakeOpenAI(t, tt.content, http.StatusOK), "gpt-4o-mini")
			require.NoError(t, err)
			got, err := c.Classify(context.Background(), "anything")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMClassifierServerError(t *testing.T) {
	c, err := LoadLLMClassifier("", fakeOpenAI(t, "", http.StatusInternalServerError), "gpt-4o-mini")
	require.NoError(t, err)
	got, err := c.Classify(context.Background(), "anything")
	assert.Error(t, err)
	assert.Equal(t, IntentFallback, got)
}

func TestLLMClassifierAsEngineAssist(t *testing.T) {
	c, err := LoadLLMClassifier("", fakeOpenAI(t, `{"tag":"supplier_search"}`, http.StatusOK), "gpt-4o-mini")
	require.NoError(t, err)
	e := newTestEngine(EngineOptions{Assist: c})
	_, turn := e.Dispatch(context.Background(), NewSession("s"), "who makes amoxicillin near Nairobi")
	assert.Equal(t, IntentSupplierSearch, turn.Tag)
	assert.NotEmpty(t, turn.Response.Payload.Suppliers)
}

func TestLoadLLMClassifierPromptFile(t *testing.T) {
	c, err := LoadLLMClassifier(filepath.Join("..", "..", "prompts", "intent.yaml"), openai.NewClient("k"), "m")
	require.NoError(t, err)
	assert.Len(t, c.spec.Intents, len(AllIntents))

	_, err = LoadLLMClassifier(filepath.Join(t.TempDir(), "missing.yaml"), openai.NewClient("k"), "m")
	assert.Error(t, err)
}
