package testutils

import (
	"context"
	"sync"

	"github.com/webtechie/docschat/pkg/llm"
)

// MockGenerator is a test generator that replays a fixed token stream and
// records every prompt it receives.
type MockGenerator struct {
	// Tokens are delivered one OnToken call each, in order.
	Tokens []string

	// Err, when non-nil, is delivered via OnError after the tokens instead
	// of OnComplete.
	Err error

	mu      sync.Mutex
	prompts []string
}

func NewMockGenerator(tokens ...string) *MockGenerator {
	return &MockGenerator{Tokens: tokens}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string, handler llm.StreamHandler) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	for _, tok := range m.Tokens {
		handler.OnToken(tok)
	}
	if m.Err != nil {
		handler.OnError(m.Err)
		return
	}
	handler.OnComplete()
}

// Prompts returns the prompts received so far.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}
