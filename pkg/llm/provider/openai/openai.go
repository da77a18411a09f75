// Package openai implements pkg/llm's Generator against OpenAI-compatible
// streaming chat completion endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/llm"
	"github.com/webtechie/docschat/pkg/sse"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "gpt-4"

	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com/v1"

	// apiKeyEnv is the environment variable holding the API key when none
	// is configured explicitly.
	apiKeyEnv = "OPENAI_API_KEY"

	// doneSentinel terminates an OpenAI SSE stream.
	doneSentinel = "[DONE]"
)

// Generator streams chat completions from an OpenAI-compatible endpoint.
type Generator struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the OpenAI generator.
type Config struct {
	// BaseURL is the API base URL (scheme + host + "/v1").
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string

	// APIKey authenticates the request. Falls back to $OPENAI_API_KEY.
	APIKey string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamChunk is one SSE data payload from the streaming completions API.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// NewGenerator creates a streaming generator against an OpenAI-compatible API.
func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Generate streams the answer for the prompt, delivering each delta through
// the handler. Exactly one terminal callback fires.
func (g *Generator) Generate(ctx context.Context, prompt string, handler llm.StreamHandler) {
	body, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		handler.OnError(fmt.Errorf("%w: marshaling request: %v", llm.ErrGeneration, err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		handler.OnError(fmt.Errorf("%w: creating request: %v", llm.ErrGeneration, err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		handler.OnError(fmt.Errorf("%w: sending request: %v", llm.ErrGeneration, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		handler.OnError(fmt.Errorf("%w: api returned status %d: %s",
			llm.ErrGeneration, resp.StatusCode, string(respBody)))
		return
	}

	reader := sse.NewReader(resp.Body)
	for {
		event, err := reader.Next()
		if err != nil {
			handler.OnError(fmt.Errorf("%w: reading stream: %v", llm.ErrGeneration, err))
			return
		}
		if event == nil || event.Data == doneSentinel {
			handler.OnComplete()
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			g.logger.Debug("failed to parse stream chunk",
				zap.String("data", event.Data),
				zap.Error(err),
			)
			continue
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" {
			handler.OnToken(content)
		}
	}
}
