package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/seralba/vitala-health-agent/internal/embeddings"
)

// Scored pairs a passage with its similarity to a query.
type Scored struct {
	Passage Passage
	Score   float32
}

// Retriever ranks store passages by semantic similarity to a query.
//
// Cosine similarity is the metric on purpose: for this embedding
// family magnitude carries no meaning, direction encodes the
// semantics. Do not swap in Euclidean distance; rankings must stay
// reproducible.
type Retriever struct {
	store    *Store
	embedder Embedder
	logger   *slog.Logger
}

// NewRetriever creates a retriever over a frozen store. The embedder
// must be the same backend and model the store was built with.
func NewRetriever(store *Store, embedder Embedder, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// Search embeds the query and returns the top k passages by descending
// cosine similarity. Ties keep insertion order. An empty store yields
// an empty result, not an error; k < 1 likewise. Embedding failure is
// the only error path.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]Scored, error) {
	if r.store.Len() == 0 || k < 1 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := make([]Scored, r.store.Len())
	for i, p := range r.store.passages {
		scored[i] = Scored{
			Passage: p,
			Score:   embeddings.CosineSimilarity(queryVec, p.Vector),
		}
	}

	if k > len(scored) {
		k = len(scored)
	}

	// Selection of the k best, preferring earlier passages on equal
	// scores. Stable for a fixed store and fixed query embedding.
	for i := 0; i < k; i++ {
		best := i
		for j := i + 1; j < len(scored); j++ {
			if scored[j].Score > scored[best].Score {
				best = j
			}
		}
		if best != i {
			picked := scored[best]
			copy(scored[i+1:best+1], scored[i:best])
			scored[i] = picked
		}
	}

	results := scored[:k]

	r.logger.Debug("retrieval completed",
		"query_len", len(query),
		"k", k,
		"results", len(results),
	)

	return results, nil
}
