package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-diet-planner/internal/config"
	"ai-diet-planner/internal/shared"
)

// openAIClient talks to an OpenAI-compatible chat completions endpoint.
type openAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible API.
func NewOpenAIClient(cfg *config.Config) Generator {
	return &openAIClient{
		apiKey:  cfg.OpenAIAPIKey,
		baseURL: cfg.OpenAIBaseURL,
		model:   cfg.OpenAIModel,
		httpClient: &http.Client{
			Timeout: cfg.LLMTimeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Generate sends the request to the chat completions endpoint and returns
// the generated text.
func (c *openAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	system := req.System
	if req.Schema != nil {
		// The generic JSON mode has no schema parameter, so the shape
		// constraint travels in the system instruction instead.
		schemaJSON, err := json.Marshal(req.Schema)
		if err != nil {
			return Response{}, fmt.Errorf("failed to marshal schema: %w", err)
		}
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with a single JSON object conforming to this schema:\n" + string(schemaJSON)
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	reqBody := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	if req.Schema != nil {
		reqBody["temperature"] = 0.1
		reqBody["response_format"] = map[string]string{"type": "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v (after %s)", ErrUnavailable, err, time.Since(start).Round(time.Millisecond))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return Response{}, fmt.Errorf("%w: status=%d body=%s", ErrUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return Response{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: no content generated", ErrUnavailable)
	}

	return Response{
		Content: completion.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
			Model:            c.model,
		},
	}, nil
}
