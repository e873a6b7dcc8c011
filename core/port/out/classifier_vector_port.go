package out

import (
	"context"
	"time"
)

// VectorEntry is a document stored in the vector index.
type VectorEntry struct {
	ID        string
	Document  string
	Embedding []float32
	Metadata  map[string]string
	CreatedAt time.Time
}

// VectorSearchHit is one nearest-neighbor result from the index.
type VectorSearchHit struct {
	ID         string
	Document   string
	Metadata   map[string]string
	Similarity float64
}

// IndexStats summarizes the current index.
type IndexStats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`
}

// VectorIndex stores and searches email embeddings.
type VectorIndex interface {
	// Add stores an entry and returns its ID. Generates an ID when the
	// entry has none.
	Add(ctx context.Context, entry VectorEntry) (string, error)

	// Search returns up to topK nearest entries by cosine similarity,
	// best first.
	Search(ctx context.Context, embedding []float32, topK int) ([]VectorSearchHit, error)

	// Delete removes an entry by ID.
	Delete(ctx context.Context, id string) error

	// Prune removes entries created before the cutoff and returns how
	// many were removed.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	// Stats returns index statistics.
	Stats(ctx context.Context) (IndexStats, error)
}
