// Package index builds and queries the embedding index over the
// documentation corpus. Ingestion runs once at startup, strictly before any
// query; the Ready gate enforces that ordering for callers.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/corpus"
	"github.com/webtechie/docschat/pkg/embeddings"
	"github.com/webtechie/docschat/pkg/vector"
)

const (
	// DefaultMaxResults caps the number of matches returned by a query.
	DefaultMaxResults = 10

	// DefaultMinScore is the relevance threshold below which matches are
	// dropped.
	DefaultMinScore float32 = 0.7
)

// ErrNotReady is returned when a query arrives before ingestion completed.
var ErrNotReady = errors.New("index not ready")

// Progress receives cumulative, advisory progress messages during ingestion.
// Messages are informational only and never indicate failure.
type Progress func(msg string)

// Index owns the vector store and the embedder used to fill and query it.
//
// Ingest and Query must not run concurrently; the single ingestion pass
// completes (and flips Ready) before queries are accepted, after which the
// store is treated as immutable and safe for concurrent readers.
type Index struct {
	embedder embeddings.Embedder
	store    vector.Driver
	ready    atomic.Bool
	logger   *zap.Logger
}

// New creates an index over the given embedder and vector store.
func New(embedder embeddings.Embedder, store vector.Driver, logger *zap.Logger) *Index {
	return &Index{
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Ready reports whether ingestion has completed. Queries before that return
// ErrNotReady.
func (ix *Index) Ready() bool {
	return ix.ready.Load()
}

// Ingest filters out sections without content, embeds the rest, and stores
// the resulting passages. Returns the number of passages ingested.
//
// An empty section list still produces a ready (empty) index: "nothing
// indexed" and "not ready yet" are different states.
func (ix *Index) Ingest(ctx context.Context, sections []corpus.ContentSection, report Progress) (int, error) {
	if report == nil {
		report = func(string) {}
	}

	// Sections with empty content carry no embeddable signal.
	indexable := make([]corpus.ContentSection, 0, len(sections))
	for _, section := range sections {
		if section.Content == "" {
			continue
		}
		indexable = append(indexable, section)
	}
	report(fmt.Sprintf("\nConverted to number of text segments: %d", len(indexable)))

	if len(indexable) == 0 {
		ix.ready.Store(true)
		ix.logger.Info("index ready with empty corpus")
		return 0, nil
	}

	texts := make([]string, len(indexable))
	for i, section := range indexable {
		texts[i] = section.Content
	}

	vectors, err := ix.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding corpus: %w", err)
	}
	report(fmt.Sprintf("\nNumber of embeddings: %d", len(vectors)))

	passages := make([]vector.Passage, len(indexable))
	for i, section := range indexable {
		passages[i] = vector.Passage{
			ID:        section.ObjectID.String(),
			Text:      section.Content,
			Link:      section.Link,
			GroupID:   section.GroupID,
			Embedding: vectors[i],
		}
	}

	if err := ix.store.Add(ctx, passages); err != nil {
		return 0, fmt.Errorf("storing passages: %w", err)
	}
	report("\nEmbeddings are added to the store")

	ix.ready.Store(true)
	ix.logger.Info("index ready",
		zap.Int("sections", len(sections)),
		zap.Int("passages", len(passages)),
	)

	return len(passages), nil
}

// Search embeds the question and runs QueryVector with it.
func (ix *Index) Search(ctx context.Context, question string, maxResults int, minScore float32) ([]vector.Match, error) {
	if !ix.Ready() {
		return nil, ErrNotReady
	}

	questionVector, err := ix.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	return ix.QueryVector(ctx, questionVector, maxResults, minScore)
}

// QueryVector finds the stored passages most similar to the given vector.
// Matches come back in descending score order, all scoring at least minScore,
// at most maxResults of them. Repeated calls with identical inputs return
// identical ordered results.
func (ix *Index) QueryVector(ctx context.Context, questionVector []float32, maxResults int, minScore float32) ([]vector.Match, error) {
	if !ix.Ready() {
		return nil, ErrNotReady
	}

	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	matches, err := ix.store.Query(ctx, questionVector, maxResults, minScore)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}

	// Drivers already return descending order; the stable re-sort pins the
	// tie-break to the driver's (ingestion) order regardless of backend.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	ix.logger.Debug("index query",
		zap.Int("results", len(matches)),
		zap.Float32("min_score", minScore),
	)

	return matches, nil
}

// Size returns the number of stored passages.
func (ix *Index) Size(ctx context.Context) (int, error) {
	return ix.store.Count(ctx)
}
