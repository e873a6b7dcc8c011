// Package vector implements the vector index backends: in-memory for
// development and tests, pgvector and Neo4j for persistent deployments.
package vector

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"classifier_server/core/port/out"
)

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MemoryIndex is an in-memory vector index with linear scan search.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries []out.VectorEntry
	ttl     time.Duration
}

// NewMemoryIndex creates an index. Entries older than ttl are invisible to
// Search; a ttl of 0 disables expiry.
func NewMemoryIndex(ttl time.Duration) *MemoryIndex {
	return &MemoryIndex{ttl: ttl}
}

func (m *MemoryIndex) Add(ctx context.Context, entry out.VectorEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID == entry.ID {
			m.entries[i] = entry
			return entry.ID, nil
		}
	}
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *MemoryIndex) Search(ctx context.Context, embedding []float32, topK int) ([]out.VectorSearchHit, error) {
	if topK <= 0 {
		topK = 10
	}

	var cutoff time.Time
	if m.ttl > 0 {
		cutoff = time.Now().Add(-m.ttl)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	hits := make([]out.VectorSearchHit, 0, len(m.entries))
	for _, entry := range m.entries {
		if !cutoff.IsZero() && entry.CreatedAt.Before(cutoff) {
			continue
		}
		hits = append(hits, out.VectorSearchHit{
			ID:         entry.ID,
			Document:   entry.Document,
			Metadata:   entry.Metadata,
			Similarity: CosineSimilarity(embedding, entry.Embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryIndex) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	var removed int64
	for _, entry := range m.entries {
		if entry.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	m.entries = kept
	return removed, nil
}

func (m *MemoryIndex) Stats(ctx context.Context) (out.IndexStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return out.IndexStats{
		Backend: "memory",
		Entries: int64(len(m.entries)),
	}, nil
}
