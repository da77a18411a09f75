// Package embeddings
package embeddings

import "context"

// Embedder provides text embedding capabilities. Implementations are
// expected to be deterministic for a given model and free of side effects.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedAll converts a batch of texts into vector embeddings, one per
	// input, in input order.
	EmbedAll(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
