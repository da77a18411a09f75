// Package vector provides interfaces and implementations for storage and
// similarity search of embedded documentation passages.
package vector

import "context"

// Passage is a stored unit of documentation text with its embedding and
// retrieval metadata. Passages are never mutated after insertion.
type Passage struct {
	// ID is the unique identifier of the passage (the section's objectID).
	ID string

	// Text is the raw section content that was embedded.
	Text string

	// Link is the deep link to the documentation section, anchor included.
	Link string

	// GroupID is the logical documentation group the passage belongs to.
	GroupID string

	// Embedding is the vector representation of Text. Dimensionality is
	// constant across a store.
	Embedding []float32
}

// Match is a query result with its similarity score.
type Match struct {
	Passage

	// Score is the similarity score (higher = more similar, cosine-monotonic).
	Score float32
}

// Driver handles storage and retrieval of embedded passages.
type Driver interface {
	// Add stores passages with their embeddings. Implementers should update
	// on duplicate IDs.
	Add(ctx context.Context, passages []Passage) error

	// Query finds the topK most similar passages to the given embedding with
	// a score of at least minScore, ordered by descending score.
	Query(ctx context.Context, embedding []float32, topK int, minScore float32) ([]Match, error)

	// Count returns the number of stored passages. An empty store is a valid
	// state distinct from "no matches cleared the threshold".
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
