// Package memory provides an in-process vector driver using brute-force
// cosine similarity. It is the default driver: the corpus index is rebuilt
// on every run, so nothing needs to survive the process.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/vector"
)

// Driver implements vector.Driver with a flat in-memory slice.
//
// Passages are kept in insertion order, which gives Query a stable tie-break:
// equal scores preserve ingestion order.
type Driver struct {
	mu       sync.RWMutex
	passages []vector.Passage
	byID     map[string]int
	dims     int
	logger   *zap.Logger
}

// NewDriver creates an empty in-memory vector driver.
func NewDriver(logger *zap.Logger) *Driver {
	return &Driver{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// Add stores passages with their embeddings. A passage with a known ID
// replaces the stored one in place, keeping its original position.
func (d *Driver) Add(_ context.Context, passages []vector.Passage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range passages {
		if d.dims == 0 {
			d.dims = len(p.Embedding)
		}
		if len(p.Embedding) != d.dims {
			return fmt.Errorf("%w: got %d, store has %d",
				vector.ErrDimensionMismatch, len(p.Embedding), d.dims)
		}

		if i, ok := d.byID[p.ID]; ok {
			d.passages[i] = p
			continue
		}
		d.byID[p.ID] = len(d.passages)
		d.passages = append(d.passages, p)
	}

	d.logger.Debug("added passages to memory store",
		zap.Int("count", len(passages)),
		zap.Int("total", len(d.passages)),
	)

	return nil
}

// Query scores every stored passage against the embedding with cosine
// similarity, filters to minScore, and returns the topK in descending score
// order.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int, minScore float32) ([]vector.Match, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if topK <= 0 {
		topK = 10
	}

	matches := make([]vector.Match, 0, len(d.passages))
	for _, p := range d.passages {
		score := cosine(embedding, p.Embedding)
		if score < minScore {
			continue
		}
		matches = append(matches, vector.Match{Passage: p, Score: score})
	}

	// Stable sort keeps ingestion order on equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return matches, nil
}

// Count returns the number of stored passages.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.passages), nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

// cosine computes cosine similarity without assuming normalized inputs.
func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
