// Package ollama implements pkg/llm's Generator against Ollama's streaming
// chat API.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/llm"
)

const (
	// DefaultModel is the default chat model.
	DefaultModel = "llama3.2"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// Generator streams chat completions from Ollama.
type Generator struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL is the Ollama API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the chat model to use. Defaults to DefaultModel if empty.
	Model string
}

// chatRequest is the Ollama-native chat request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// chatMessage is an Ollama-native message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// streamChunk represents a single streaming response chunk from Ollama.
type streamChunk struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
	ErrorText  string      `json:"error"`
}

// NewGenerator creates a streaming generator against an Ollama instance.
func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Generate streams the answer for the prompt, delivering each chunk's text
// through the handler. Exactly one terminal callback fires.
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

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		handler.OnError(fmt.Errorf("%w: creating request: %v", llm.ErrGeneration, err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		handler.OnError(fmt.Errorf("%w: sending request: %v", llm.ErrGeneration, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		handler.OnError(fmt.Errorf("%w: ollama returned status %d: %s",
			llm.ErrGeneration, resp.StatusCode, string(respBody)))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			g.logger.Debug("failed to parse stream chunk",
				zap.ByteString("line", line),
				zap.Error(err),
			)
			continue
		}

		if chunk.ErrorText != "" {
			handler.OnError(fmt.Errorf("%w: %s", llm.ErrGeneration, chunk.ErrorText))
			return
		}

		if chunk.Message.Content != "" {
			handler.OnToken(chunk.Message.Content)
		}

		if chunk.Done {
			handler.OnComplete()
			return
		}
	}

	if err := scanner.Err(); err != nil {
		handler.OnError(fmt.Errorf("%w: reading stream: %v", llm.ErrGeneration, err))
		return
	}

	// Stream ended without a done chunk; treat as complete.
	handler.OnComplete()
}
