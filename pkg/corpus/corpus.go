// Package corpus loads the documentation corpus used for retrieval.
//
// The corpus is a single JSON array of content sections. Each documentation
// page is split into sections so that answers can deep-link directly to
// anchors.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
)

var (
	// ErrCorpusNotFound is returned when the corpus file does not exist.
	// The system stays up in a degraded, unanswerable state.
	ErrCorpusNotFound = errors.New("corpus file not found")

	// ErrCorpusParse is returned when the corpus file cannot be decoded.
	ErrCorpusParse = errors.New("corpus parse failed")
)

// ContentSection is one indexable unit of documentation. Sections are
// immutable once loaded.
type ContentSection struct {
	ObjectID   uuid.UUID `json:"objectID"`
	GroupID    string    `json:"groupId"`
	GroupLabel string    `json:"groupLabel"`
	Version    string    `json:"version"`
	Title      string    `json:"title"`
	Section    string    `json:"section"`
	URL        string    `json:"url"`
	Link       string    `json:"link"`
	Content    string    `json:"content"`
}

// LoadResult carries the loaded sections plus per-record skip information.
type LoadResult struct {
	Sections []ContentSection

	// Skipped counts records that could not be decoded individually.
	// A skipped record never aborts the rest of the load.
	Skipped int
}

// Load reads and decodes a corpus file.
//
// A missing file yields ErrCorpusNotFound and an empty result; malformed
// JSON yields ErrCorpusParse wrapping the cause. Records that fail to decode
// on their own (e.g. a mangled objectID) are skipped and counted rather than
// failing the whole load.
func Load(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LoadResult{}, fmt.Errorf("%w: %s", ErrCorpusNotFound, path)
		}
		return LoadResult{}, fmt.Errorf("%w: reading %s: %v", ErrCorpusParse, path, err)
	}

	return Decode(data)
}

// Decode parses corpus JSON bytes. See Load for error semantics.
func Decode(data []byte) (LoadResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LoadResult{}, fmt.Errorf("%w: %v", ErrCorpusParse, err)
	}

	result := LoadResult{Sections: make([]ContentSection, 0, len(raw))}
	for _, record := range raw {
		var section ContentSection
		if err := json.Unmarshal(record, &section); err != nil {
			result.Skipped++
			continue
		}
		result.Sections = append(result.Sections, section)
	}

	return result, nil
}
