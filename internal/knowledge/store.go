// Package knowledge implements the local knowledge base and the
// retrieval engine that ranks its passages against a query.
//
// The store is built once at startup and never mutated afterwards, so
// it is safe for concurrent read access from any number of sessions
// without locking.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
)

// Passage is one retrievable unit of knowledge-base text.
type Passage struct {
	ID     string    `json:"id"`
	Source string    `json:"source"` // file the passage came from
	Text   string    `json:"text"`
	Vector []float32 `json:"-"`
}

// Embedder turns text into fixed-length vectors. Satisfied by
// *embeddings.Client; tests substitute deterministic fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Store holds the frozen passage set and its precomputed vectors.
type Store struct {
	passages  []Passage
	model     string
	dimension int
}

// BuildStore loads passages from path (see LoadPassages), embeds them
// with the given embedder, and returns the frozen store.
//
// An empty knowledge base is informational, not fatal: the store is
// returned empty and retrieval yields no passages. A dimension mismatch
// between embedded passages is a configuration error and fails the
// build.
func BuildStore(ctx context.Context, path string, embedder Embedder, logger *slog.Logger) (*Store, error) {
	passages, err := LoadPassages(path)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	store := &Store{model: embedder.Model()}

	if len(passages) == 0 {
		logger.Warn("knowledge base is empty", "path", path)
		return store, nil
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed knowledge base: %w", err)
	}

	store.dimension = len(vectors[0])
	for i := range passages {
		if len(vectors[i]) != store.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: passage %s has %d, expected %d",
				passages[i].ID, len(vectors[i]), store.dimension)
		}
		passages[i].Vector = vectors[i]
	}
	store.passages = passages

	logger.Info("knowledge base loaded",
		"path", path,
		"passages", len(passages),
		"model", store.model,
		"dimension", store.dimension,
	)

	return store, nil
}

// NewStore builds a store directly from pre-embedded passages.
// Used by tests and by callers that manage embedding themselves.
func NewStore(passages []Passage, model string) (*Store, error) {
	s := &Store{passages: passages, model: model}
	for i, p := range passages {
		if i == 0 {
			s.dimension = len(p.Vector)
			continue
		}
		if len(p.Vector) != s.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: passage %s has %d, expected %d",
				p.ID, len(p.Vector), s.dimension)
		}
	}
	return s, nil
}

// Len returns the number of stored passages.
func (s *Store) Len() int {
	return len(s.passages)
}

// Model returns the embedding model the store was built with.
func (s *Store) Model() string {
	return s.model
}

// Dimension returns the embedding dimensionality, 0 for an empty store.
func (s *Store) Dimension() int {
	return s.dimension
}
