package vector

import "errors"

var (
	// ErrNotFound is returned when a passage is not found in the vector store.
	ErrNotFound = errors.New("passage not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when an embedding's dimensionality
	// does not match the store's configured dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
