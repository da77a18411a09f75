// Package action holds the observable state of one question/answer
// transaction and the dispatcher that serializes all mutations to it.
//
// A SearchAction is created when a question is submitted (plus one at process
// init for the index-build notification) and is retained for history display
// for the life of the process. After creation the only permitted mutations
// are appends to the answer and related-links text and a single monotonic
// finished flip.
package action

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MutationKind discriminates the change feed entries.
type MutationKind int

const (
	// MutationAnswer is an append to the answer text.
	MutationAnswer MutationKind = iota

	// MutationRelatedLink is an append to the related-links text.
	MutationRelatedLink

	// MutationFinished is the one-shot finished flip.
	MutationFinished
)

// Mutation describes a single observed change to a SearchAction.
type Mutation struct {
	Kind MutationKind
	Text string
}

// SearchAction is the externally observable unit of work for one question.
//
// Mutators are expected to run on the dispatcher goroutine (single-writer);
// accessors may run from any goroutine.
type SearchAction struct {
	id        uuid.UUID
	timestamp time.Time
	question  string

	mu           sync.RWMutex
	relatedLinks strings.Builder
	answer       strings.Builder
	finished     bool
	observers    []func(Mutation)
}

// NewSearchAction creates an unfinished action for the given question.
func NewSearchAction(question string) *SearchAction {
	return &SearchAction{
		id:        uuid.New(),
		timestamp: time.Now(),
		question:  question,
	}
}

// NewFinishedSearchAction creates an already-finished action, used for
// plain notification rows like "Application started".
func NewFinishedSearchAction(question string) *SearchAction {
	a := NewSearchAction(question)
	a.finished = true
	return a
}

// ID returns the action's unique identifier.
func (a *SearchAction) ID() uuid.UUID { return a.id }

// Timestamp returns the creation time. Immutable.
func (a *SearchAction) Timestamp() time.Time { return a.timestamp }

// Question returns the submitted question. Immutable.
func (a *SearchAction) Question() string { return a.question }

// Answer returns the accumulated answer text.
func (a *SearchAction) Answer() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.answer.String()
}

// RelatedLinks returns the accumulated newline-joined related links.
func (a *SearchAction) RelatedLinks() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.relatedLinks.String()
}

// Finished reports whether the action reached a terminal state.
func (a *SearchAction) Finished() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.finished
}

// Subscribe registers a change observer. Observers are invoked on the
// mutating goroutine, after the mutation is applied.
func (a *SearchAction) Subscribe(fn func(Mutation)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

// AppendAnswer appends text verbatim to the answer. Appends arriving after
// the finished flip are ignored: a late callback racing a terminal state
// must not corrupt it.
func (a *SearchAction) AppendAnswer(text string) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.answer.WriteString(text)
	observers := a.observers
	a.mu.Unlock()

	for _, fn := range observers {
		fn(Mutation{Kind: MutationAnswer, Text: text})
	}
}

// AppendRelatedLink appends one link on its own line. Ignored after the
// finished flip.
func (a *SearchAction) AppendRelatedLink(link string) {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.relatedLinks.WriteString("\n")
	a.relatedLinks.WriteString(link)
	observers := a.observers
	a.mu.Unlock()

	for _, fn := range observers {
		fn(Mutation{Kind: MutationRelatedLink, Text: link})
	}
}

// MarkFinished flips the finished flag. The flip happens exactly once;
// repeated calls are no-ops and notify nobody.
func (a *SearchAction) MarkFinished() {
	a.mu.Lock()
	if a.finished {
		a.mu.Unlock()
		return
	}
	a.finished = true
	observers := a.observers
	a.mu.Unlock()

	for _, fn := range observers {
		fn(Mutation{Kind: MutationFinished})
	}
}
