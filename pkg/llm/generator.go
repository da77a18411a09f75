// Package llm defines the streaming generation contract the answer pipeline
// depends on. The pipeline only relies on the three-callback interface, not
// on any particular model or provider.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned (via OnError) when the generation call fails.
var ErrGeneration = errors.New("generation failed")

// StreamHandler receives incremental generation results.
//
// OnToken may be invoked many times, always strictly before the single
// terminal callback. Exactly one of OnComplete or OnError is invoked per
// Generate call.
type StreamHandler interface {
	// OnToken delivers the next answer fragment, verbatim.
	OnToken(token string)

	// OnComplete signals that the stream finished successfully.
	OnComplete()

	// OnError signals that the stream failed. No further callbacks follow.
	OnError(err error)
}

// Generator produces a streaming answer for a fully assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, handler StreamHandler)
}

// HandlerFuncs adapts plain functions to the StreamHandler interface.
// Nil fields are treated as no-ops.
type HandlerFuncs struct {
	Token    func(token string)
	Complete func()
	Error    func(err error)
}

func (h HandlerFuncs) OnToken(token string) {
	if h.Token != nil {
		h.Token(token)
	}
}

func (h HandlerFuncs) OnComplete() {
	if h.Complete != nil {
		h.Complete()
	}
}

func (h HandlerFuncs) OnError(err error) {
	if h.Error != nil {
		h.Error(err)
	}
}
