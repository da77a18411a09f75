// Package answer drives the question/answer lifecycle: one-time corpus
// ingestion at startup, then per-question retrieval, prompt assembly, and
// streamed generation into a SearchAction.
//
// Every action moves PENDING -> STREAMING -> {COMPLETED | FAILED}. Failures
// never escalate: they are folded into the action text and the action is
// finished, so clients always see a terminal answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/action"
	"github.com/webtechie/docschat/pkg/corpus"
	"github.com/webtechie/docschat/pkg/eventstream"
	"github.com/webtechie/docschat/pkg/index"
	"github.com/webtechie/docschat/pkg/llm"
	"github.com/webtechie/docschat/pkg/prompt"
)

// State is the lifecycle phase of one action.
type State string

const (
	// StatePending means the action is registered but retrieval has not run.
	StatePending State = "PENDING"

	// StateStreaming means tokens are being appended to the answer.
	StateStreaming State = "STREAMING"

	// StateCompleted means the stream finished successfully.
	StateCompleted State = "COMPLETED"

	// StateFailed means the action terminated with an error folded into its
	// answer text.
	StateFailed State = "FAILED"
)

// NotReadyMessage is appended when a question arrives before ingestion
// completed.
const NotReadyMessage = "The chat model is not ready yet... Please try again later."

// Config carries the controller's tunables.
type Config struct {
	// CorpusPath locates the JSON corpus file loaded during Init.
	CorpusPath string

	// MaxResults caps retrieved passages per question. Zero means the index
	// default.
	MaxResults int

	// MinScore is the relevance threshold. Zero means the index default.
	MinScore float32

	// Provider and Model identify the generation stack in emitted events.
	Provider string
	Model    string
}

// Controller owns the answer pipeline. All action mutations go through the
// single-consumer dispatcher; the controller itself never writes to an
// action directly.
type Controller struct {
	cfg       Config
	index     *index.Index
	generator llm.Generator
	dispatch  *action.Dispatcher
	history   *action.History
	publisher eventstream.Publisher
	logger    *zap.Logger

	mu     sync.RWMutex
	states map[uuid.UUID]State
}

// NewController wires the pipeline together.
func NewController(
	cfg Config,
	ix *index.Index,
	generator llm.Generator,
	dispatch *action.Dispatcher,
	history *action.History,
	publisher eventstream.Publisher,
	logger *zap.Logger,
) *Controller {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = index.DefaultMaxResults
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = index.DefaultMinScore
	}

	return &Controller{
		cfg:       cfg,
		index:     ix,
		generator: generator,
		dispatch:  dispatch,
		history:   history,
		publisher: publisher,
		logger:    logger,
		states:    make(map[uuid.UUID]State),
	}
}

// History exposes the retained actions for the API and clients.
func (c *Controller) History() *action.History {
	return c.history
}

// Ready reports whether questions can be answered yet.
func (c *Controller) Ready() bool {
	return c.index.Ready()
}

// State returns the lifecycle phase of the given action.
func (c *Controller) State(id uuid.UUID) State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if s, ok := c.states[id]; ok {
		return s
	}
	return StatePending
}

func (c *Controller) setState(id uuid.UUID, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.states[id]
	// Terminal states stick; a late transition must not revive the action.
	if ok && (current == StateCompleted || current == StateFailed) {
		return
	}
	c.states[id] = s
}

// Init loads the corpus and builds the index, narrating progress into the
// given action. A missing or unparsable corpus leaves the service in
// degraded mode: the action is finished with the failure text, the index
// stays not-ready, and the process keeps running.
func (c *Controller) Init(ctx context.Context, a *action.SearchAction) error {
	c.history.Add(a)
	c.setState(a.ID(), StateStreaming)

	c.post(a, "Initiating...")

	result, err := corpus.Load(c.cfg.CorpusPath)
	if err != nil {
		if errors.Is(err, corpus.ErrCorpusNotFound) {
			c.post(a, "\nCould not find the JSON file")
		} else {
			c.post(a, fmt.Sprintf("\nSomething went wrong: %v", err))
		}
		c.finish(a, StateFailed)
		c.logger.Warn("init degraded, index will stay not-ready", zap.Error(err))
		return err
	}

	c.post(a, fmt.Sprintf("\nLoaded number of JSON content sections: %d", len(result.Sections)))
	if result.Skipped > 0 {
		c.post(a, fmt.Sprintf("\nSkipped malformed content sections: %d", result.Skipped))
	}

	count, err := c.index.Ingest(ctx, result.Sections, func(msg string) {
		c.post(a, msg)
	})
	if err != nil {
		c.post(a, fmt.Sprintf("\nSomething went wrong: %v", err))
		c.finish(a, StateFailed)
		c.logger.Warn("ingestion failed, index will stay not-ready", zap.Error(err))
		return err
	}

	c.post(a, "\nChat model is ready")
	c.finish(a, StateCompleted)
	c.logger.Info("init complete", zap.Int("passages", count))
	return nil
}

// Submit registers a question and answers it on its own goroutine. The
// returned action is live: observe it, or poll it, while it streams.
func (c *Controller) Submit(ctx context.Context, question string) *action.SearchAction {
	a := action.NewSearchAction(question)
	c.history.Add(a)
	go c.Ask(ctx, a)
	return a
}

// Ask answers the action's question, blocking until the action is terminal.
//
// Not-ready gate first; then retrieval, related links in match order, prompt
// assembly, and the token stream. The callback handler appends through the
// dispatcher, so tokens land in arrival order; late callbacks racing the
// terminal flip are ignored by the action itself.
func (c *Controller) Ask(ctx context.Context, a *action.SearchAction) {
	c.history.Add(a)
	started := time.Now()

	if !c.index.Ready() {
		c.post(a, NotReadyMessage)
		c.terminate(ctx, a, StateFailed, started)
		return
	}

	c.setState(a.ID(), StatePending)

	matches, err := c.index.Search(ctx, a.Question(), c.cfg.MaxResults, c.cfg.MinScore)
	if err != nil {
		c.post(a, fmt.Sprintf("\n\nSomething went wrong: %v", err))
		c.terminate(ctx, a, StateFailed, started)
		return
	}

	for _, match := range matches {
		link := match.Link
		c.dispatch.Post(func() { a.AppendRelatedLink(link) })
	}

	text, err := prompt.Build(a.Question(), matches)
	if err != nil {
		c.post(a, fmt.Sprintf("\n\nSomething went wrong: %v", err))
		c.terminate(ctx, a, StateFailed, started)
		return
	}

	c.setState(a.ID(), StateStreaming)
	c.logger.Debug("streaming answer",
		zap.String("action_id", a.ID().String()),
		zap.Int("matches", len(matches)),
	)

	done := make(chan State, 1)
	c.generator.Generate(ctx, text, llm.HandlerFuncs{
		Token: func(token string) {
			c.dispatch.Post(func() { a.AppendAnswer(token) })
		},
		Complete: func() {
			// Footer and the terminal flip go in one closure so nothing can
			// interleave between them, and any straggler callback posted
			// after this point finds the action already finished.
			c.dispatch.Post(func() {
				size := len(a.Answer())
				a.AppendAnswer(fmt.Sprintf("\n\nAnswer is complete for '%s', size: %d", a.Question(), size))
				a.MarkFinished()
			})
			// Non-blocking: only the first terminal callback wins.
			select {
			case done <- StateCompleted:
			default:
			}
		},
		Error: func(err error) {
			c.dispatch.Post(func() {
				a.AppendAnswer(fmt.Sprintf("\n\nSomething went wrong: %v", err))
				a.MarkFinished()
			})
			select {
			case done <- StateFailed:
			default:
			}
		},
	})

	c.terminate(ctx, a, <-done, started)
}

// post appends text to the action through the dispatcher.
func (c *Controller) post(a *action.SearchAction, text string) {
	c.dispatch.Post(func() { a.AppendAnswer(text) })
}

// finish flips the action's finished flag through the dispatcher and pins
// the terminal state.
func (c *Controller) finish(a *action.SearchAction, terminal State) {
	c.setState(a.ID(), terminal)
	c.dispatch.Post(func() { a.MarkFinished() })
}

// terminate finishes the action and emits the answer-completed event. The
// event's answer size is read on the dispatcher goroutine, after every
// queued append has been applied.
func (c *Controller) terminate(ctx context.Context, a *action.SearchAction, terminal State, started time.Time) {
	c.setState(a.ID(), terminal)
	c.dispatch.Post(func() {
		a.MarkFinished()

		size := len(a.Answer())
		links := a.RelatedLinks()
		go c.publish(ctx, a, terminal, started, size, countLines(links))
	})
}

func (c *Controller) publish(ctx context.Context, a *action.SearchAction, terminal State, started time.Time, size, links int) {
	completed := time.Now()
	event := &eventstream.AnswerCompletedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeAnswerCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     completed,
		Source: eventstream.EventSource{
			Provider: c.cfg.Provider,
			Model:    c.cfg.Model,
		},
		ActionID:     a.ID().String(),
		Question:     a.Question(),
		AnswerSize:   size,
		RelatedLinks: links,
		Failed:       terminal == StateFailed,
		StartedAt:    started,
		CompletedAt:  completed,
		DurationMs:   completed.Sub(started).Milliseconds(),
	}

	if err := c.publisher.PublishAnswer(ctx, event); err != nil {
		c.logger.Warn("answer event not published", zap.Error(err))
	}
}

// countLines counts the non-empty lines of the related-links text.
func countLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			n++
		}
	}
	return n
}
