package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"classifier_server/core/port/out"
)

// Neo4jIndex stores embeddings as nodes behind a Neo4j vector index.
type Neo4jIndex struct {
	driver     neo4j.DriverWithContext
	database   string
	dimensions int
	ttl        time.Duration
}

// NewNeo4jIndex creates an index. Entries older than ttl are invisible to
// Search; a ttl of 0 disables expiry.
func NewNeo4jIndex(driver neo4j.DriverWithContext, database string, dimensions int, ttl time.Duration) *Neo4jIndex {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &Neo4jIndex{driver: driver, database: database, dimensions: dimensions, ttl: ttl}
}

func (n *Neo4jIndex) session(ctx context.Context) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
}

// EnsureSchema creates the vector index and the ID constraint.
func (n *Neo4jIndex) EnsureSchema(ctx context.Context) error {
	session := n.session(ctx)
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT email_vector_id IF NOT EXISTS
			FOR (e:EmailVector) REQUIRE e.id IS UNIQUE`,
		fmt.Sprintf(`CREATE VECTOR INDEX email_vector_embedding IF NOT EXISTS
			FOR (e:EmailVector) ON (e.embedding)
			OPTIONS {indexConfig: {
				`+"`vector.dimensions`"+`: %d,
				`+"`vector.similarity_function`"+`: 'cosine'
			}}`, n.dimensions),
	}

	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (n *Neo4jIndex) Add(ctx context.Context, entry out.VectorEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	embedding := make([]float64, len(entry.Embedding))
	for i, v := range entry.Embedding {
		embedding[i] = float64(v)
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	_, err = session.Run(ctx, `
		MERGE (e:EmailVector {id: $id})
		SET e.document = $document,
			e.embedding = $embedding,
			e.metadata = $metadata,
			e.created_at = $created_at`,
		map[string]any{
			"id":         entry.ID,
			"document":   entry.Document,
			"embedding":  embedding,
			"metadata":   string(metadata),
			"created_at": entry.CreatedAt.Unix(),
		})
	if err != nil {
		return "", fmt.Errorf("merge vector node: %w", err)
	}
	return entry.ID, nil
}

func (n *Neo4jIndex) Search(ctx context.Context, embedding []float32, topK int) ([]out.VectorSearchHit, error) {
	if topK <= 0 {
		topK = 10
	}

	query := make([]float64, len(embedding))
	for i, v := range embedding {
		query[i] = float64(v)
	}

	session := n.session(ctx)
	defer session.Close(ctx)

	var cutoff int64
	if n.ttl > 0 {
		cutoff = time.Now().Add(-n.ttl).Unix()
	}

	result, err := session.Run(ctx, `
		CALL db.index.vector.queryNodes('email_vector_embedding', $topK, $embedding)
		YIELD node, score
		WHERE node.created_at >= $cutoff
		RETURN node.id AS id, node.document AS document, node.metadata AS metadata, score`,
		map[string]any{
			"topK":      topK,
			"embedding": query,
			"cutoff":    cutoff,
		})
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	var hits []out.VectorSearchHit
	for result.Next(ctx) {
		record := result.Record()

		hit := out.VectorSearchHit{}
		if id, ok := record.Get("id"); ok {
			hit.ID, _ = id.(string)
		}
		if doc, ok := record.Get("document"); ok {
			hit.Document, _ = doc.(string)
		}
		if score, ok := record.Get("score"); ok {
			hit.Similarity, _ = score.(float64)
		}
		if raw, ok := record.Get("metadata"); ok {
			if s, ok := raw.(string); ok && s != "" {
				_ = json.Unmarshal([]byte(s), &hit.Metadata)
			}
		}
		hits = append(hits, hit)
	}
	return hits, result.Err()
}

func (n *Neo4jIndex) Delete(ctx context.Context, id string) error {
	session := n.session(ctx)
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MATCH (e:EmailVector {id: $id}) DETACH DELETE e`,
		map[string]any{"id": id})
	return err
}

func (n *Neo4jIndex) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (e:EmailVector)
		WHERE e.created_at < $cutoff
		DETACH DELETE e
		RETURN count(e) AS removed`,
		map[string]any{"cutoff": olderThan.Unix()})
	if err != nil {
		return 0, err
	}

	if result.Next(ctx) {
		if removed, ok := result.Record().Get("removed"); ok {
			if count, ok := removed.(int64); ok {
				return count, nil
			}
		}
	}
	return 0, result.Err()
}

func (n *Neo4jIndex) Stats(ctx context.Context) (out.IndexStats, error) {
	session := n.session(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (e:EmailVector) RETURN count(e) AS entries`, nil)
	if err != nil {
		return out.IndexStats{}, err
	}

	stats := out.IndexStats{Backend: "neo4j"}
	if result.Next(ctx) {
		if entries, ok := result.Record().Get("entries"); ok {
			if count, ok := entries.(int64); ok {
				stats.Entries = count
			}
		}
	}
	return stats, result.Err()
}
