package vector

import (
	"context"
	"math"
	"testing"
	"time"

	"classifier_server/core/port/out"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled copies", []float32{1, 2, 3}, []float32{2, 4, 6}, 1.0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryIndexAdd(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(0)

	id, err := index.Add(ctx, out.VectorEntry{Document: "first", Embedding: []float32{1, 0}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id == "" {
		t.Fatal("generated ID should not be empty")
	}

	// Same ID replaces in place.
	if _, err := index.Add(ctx, out.VectorEntry{ID: id, Document: "updated", Embedding: []float32{0, 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	stats, _ := index.Stats(ctx)
	if stats.Entries != 1 {
		t.Errorf("entries = %d, want 1 after upsert", stats.Entries)
	}

	hits, _ := index.Search(ctx, []float32{0, 1}, 10)
	if len(hits) != 1 || hits[0].Document != "updated" {
		t.Errorf("hits = %+v, want the updated document", hits)
	}
}

func TestMemoryIndexSearchOrdering(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(0)

	entries := map[string][]float32{
		"exact":    {1, 0},
		"close":    {0.9, 0.1},
		"far":      {0, 1},
		"opposite": {-1, 0},
	}
	for doc, emb := range entries {
		if _, err := index.Add(ctx, out.VectorEntry{Document: doc, Embedding: emb}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	hits, err := index.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("hits = %d, want 4", len(hits))
	}

	wantOrder := []string{"exact", "close", "far", "opposite"}
	for i, want := range wantOrder {
		if hits[i].Document != want {
			t.Errorf("hits[%d] = %q, want %q", i, hits[i].Document, want)
		}
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity {
			t.Errorf("hits not sorted: %v > %v at index %d", hits[i].Similarity, hits[i-1].Similarity, i)
		}
	}
}

func TestMemoryIndexSearchTopK(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(0)

	for i := 0; i < 5; i++ {
		if _, err := index.Add(ctx, out.VectorEntry{Embedding: []float32{float32(i), 1}}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	hits, _ := index.Search(ctx, []float32{1, 1}, 2)
	if len(hits) != 2 {
		t.Errorf("hits = %d, want topK 2", len(hits))
	}

	// Non-positive topK falls back to the default of 10.
	hits, _ = index.Search(ctx, []float32{1, 1}, 0)
	if len(hits) != 5 {
		t.Errorf("hits = %d, want all 5 with default topK", len(hits))
	}
}

func TestMemoryIndexSearchSkipsExpired(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(24 * time.Hour)

	if _, err := index.Add(ctx, out.VectorEntry{
		Document:  "stale",
		Embedding: []float32{1, 0},
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := index.Add(ctx, out.VectorEntry{
		Document:  "fresh",
		Embedding: []float32{0, 1},
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// The expired entry is the better similarity match but must not surface.
	hits, err := index.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1 with the stale entry hidden", len(hits))
	}
	if hits[0].Document != "fresh" {
		t.Errorf("hit = %q, want fresh", hits[0].Document)
	}

	// Expired entries still count until pruned.
	stats, _ := index.Stats(ctx)
	if stats.Entries != 2 {
		t.Errorf("entries = %d, want 2", stats.Entries)
	}
}

func TestMemoryIndexDelete(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(0)

	id, _ := index.Add(ctx, out.VectorEntry{Embedding: []float32{1, 0}})

	if err := index.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	stats, _ := index.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("entries = %d, want 0 after delete", stats.Entries)
	}

	// Deleting a missing ID is not an error.
	if err := index.Delete(ctx, "no-such-id"); err != nil {
		t.Errorf("Delete missing id: %v", err)
	}
}

func TestMemoryIndexPrune(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex(0)

	old := time.Now().Add(-48 * time.Hour)
	if _, err := index.Add(ctx, out.VectorEntry{Embedding: []float32{1, 0}, CreatedAt: old}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := index.Add(ctx, out.VectorEntry{Embedding: []float32{0, 1}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	removed, err := index.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	stats, _ := index.Stats(ctx)
	if stats.Entries != 1 {
		t.Errorf("entries = %d, want 1 after prune", stats.Entries)
	}
	if stats.Backend != "memory" {
		t.Errorf("backend = %q, want memory", stats.Backend)
	}
}
