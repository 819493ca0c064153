package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-diet-planner/internal/config"
)

func newOpenAITestClient(baseURL string) Generator {
	return NewOpenAIClient(&config.Config{
		OpenAIAPIKey:  "test-key",
		OpenAIBaseURL: baseURL,
		OpenAIModel:   "gpt-4o-mini",
		LLMTimeout:    5 * time.Second,
	})
}

func completionBody(content string) string {
	return `{
		"choices": [{"message": {"content": ` + jsonString(content) + `}}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
	}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestOpenAIGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotPath, gotAuth string
		var gotBody map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &gotBody))
			w.Write([]byte(completionBody(`{"ok": true}`)))
		}))
		defer srv.Close()

		resp, err := newOpenAITestClient(srv.URL).Generate(ctx, Request{
			System: "You are terse.",
			History: []Message{
				{Role: RoleUser, Content: "hi"},
				{Role: RoleAssistant, Content: "hello"},
			},
			Prompt: "say ok",
		})
		require.NoError(t, err)
		assert.Equal(t, `{"ok": true}`, resp.Content)
		assert.Equal(t, 12, resp.Usage.PromptTokens)
		assert.Equal(t, 7, resp.Usage.CompletionTokens)
		assert.Equal(t, "gpt-4o-mini", resp.Usage.Model)

		assert.Equal(t, "/chat/completions", gotPath)
		assert.Equal(t, "Bearer test-key", gotAuth)
		messages := gotBody["messages"].([]interface{})
		require.Len(t, messages, 4)
		first := messages[0].(map[string]interface{})
		assert.Equal(t, "system", first["role"])
		last := messages[3].(map[string]interface{})
		assert.Equal(t, "say ok", last["content"])
		// Free-form chat does not force JSON mode.
		assert.NotContains(t, gotBody, "response_format")
	})

	t.Run("SchemaEnablesJSONMode", func(t *testing.T) {
		var gotBody map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, &gotBody))
			w.Write([]byte(completionBody(`{"name": "x"}`)))
		}))
		defer srv.Close()

		_, err := newOpenAITestClient(srv.URL).Generate(ctx, Request{
			Prompt: "extract",
			Schema: Object(map[string]*Schema{"name": String()}, "name"),
		})
		require.NoError(t, err)

		rf := gotBody["response_format"].(map[string]interface{})
		assert.Equal(t, "json_object", rf["type"])
		assert.Equal(t, 0.1, gotBody["temperature"])

		// The schema constraint rides in the system message.
		messages := gotBody["messages"].([]interface{})
		first := messages[0].(map[string]interface{})
		assert.Equal(t, "system", first["role"])
		assert.Contains(t, first["content"], `"name"`)
	})

	t.Run("ServerErrorIsUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newOpenAITestClient(srv.URL).Generate(ctx, Request{Prompt: "hi"})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("TransportErrorIsUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		_, err := newOpenAITestClient(srv.URL).Generate(ctx, Request{Prompt: "hi"})
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("EmptyChoicesIsUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices": [], "usage": {}}`))
		}))
		defer srv.Close()

		_, err := newOpenAITestClient(srv.URL).Generate(ctx, Request{Prompt: "hi"})
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
