package vector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"classifier_server/core/port/out"
)

// PgVectorIndex stores embeddings in Postgres with the pgvector extension.
type PgVectorIndex struct {
	pool       *pgxpool.Pool
	dimensions int
	ttl        time.Duration
}

// NewPgVectorIndex creates an index. Entries older than ttl are invisible to
// Search; a ttl of 0 disables expiry.
func NewPgVectorIndex(pool *pgxpool.Pool, dimensions int, ttl time.Duration) *PgVectorIndex {
	if dimensions <= 0 {
		dimensions = 1536
	}
	return &PgVectorIndex{pool: pool, dimensions: dimensions, ttl: ttl}
}

// EnsureSchema creates the extension, table and ANN index.
func (p *PgVectorIndex) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS email_vectors (
			id UUID PRIMARY KEY,
			document TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.dimensions),
		`CREATE INDEX IF NOT EXISTS email_vectors_embedding_idx
			ON email_vectors USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS email_vectors_created_at_idx
			ON email_vectors (created_at)`,
	}

	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *PgVectorIndex) Add(ctx context.Context, entry out.VectorEntry) (string, error) {
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

	_, err = p.pool.Exec(ctx, `
		INSERT INTO email_vectors (id, document, embedding, metadata, created_at)
		VALUES ($1, $2, $3::vector, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			document = EXCLUDED.document,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		entry.ID, entry.Document, pgVector(entry.Embedding), metadata, entry.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert vector: %w", err)
	}
	return entry.ID, nil
}

func (p *PgVectorIndex) Search(ctx context.Context, embedding []float32, topK int) ([]out.VectorSearchHit, error) {
	if topK <= 0 {
		topK = 10
	}

	query := `
		SELECT id, document, metadata, 1 - (embedding <=> $1::vector) AS similarity
		FROM email_vectors
		ORDER BY embedding <=> $1::vector
		LIMIT $2`
	args := []any{pgVector(embedding), topK}
	if p.ttl > 0 {
		query = `
			SELECT id, document, metadata, 1 - (embedding <=> $1::vector) AS similarity
			FROM email_vectors
			WHERE created_at >= $3
			ORDER BY embedding <=> $1::vector
			LIMIT $2`
		args = append(args, time.Now().Add(-p.ttl))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []out.VectorSearchHit
	for rows.Next() {
		var hit out.VectorSearchHit
		var metadata []byte
		if err := rows.Scan(&hit.ID, &hit.Document, &metadata, &hit.Similarity); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &hit.Metadata); err != nil {
				hit.Metadata = nil
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (p *PgVectorIndex) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM email_vectors WHERE id = $1`, id)
	return err
}

func (p *PgVectorIndex) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM email_vectors WHERE created_at < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *PgVectorIndex) Stats(ctx context.Context) (out.IndexStats, error) {
	var count int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM email_vectors`).Scan(&count); err != nil {
		return out.IndexStats{}, err
	}
	return out.IndexStats{Backend: "pgvector", Entries: count}, nil
}

// pgVector formats a float32 slice as a pgvector literal: [v1,v2,...].
func pgVector(v []float32) string {
	buf := make([]byte, 0, len(v)*10+2)
	buf = append(buf, '[')
	for i, f := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendFloat(buf, float64(f), 'f', 6, 32)
	}
	buf = append(buf, ']')
	return string(buf)
}
