package out

import (
	"context"
	"time"

	"classifier_server/core/domain"
)

// ResultFilter narrows result queries.
type ResultFilter struct {
	Category domain.Category
	Since    time.Time
	Limit    int
	Offset   int
}

// ResultStore persists classification results.
type ResultStore interface {
	// Store upserts a result by ID.
	Store(ctx context.Context, result *domain.ClassificationResult) error

	// Get loads a result by ID. Returns nil when not found.
	Get(ctx context.Context, id string) (*domain.ClassificationResult, error)

	// QueryByDomain lists results for a sender domain, newest first.
	QueryByDomain(ctx context.Context, senderDomain string, filter ResultFilter) ([]*domain.ClassificationResult, error)
}

// AuditRecord captures one pipeline run for the audit trail.
type AuditRecord struct {
	ID           string        `db:"id"`
	ResultID     string        `db:"result_id"`
	SenderDomain string        `db:"sender_domain"`
	Category     string        `db:"category"`
	Confidence   float64       `db:"confidence"`
	Provenance   string        `db:"provenance"`
	DurationMS   int64         `db:"duration_ms"`
	CreatedAt    time.Time     `db:"created_at"`
}

// AuditStore records pipeline runs for observability queries.
type AuditStore interface {
	// Record writes one audit row.
	Record(ctx context.Context, rec AuditRecord) error

	// ListRecent returns the most recent records, newest first.
	ListRecent(ctx context.Context, limit int) ([]AuditRecord, error)
}
