// Package persistence implements SQL-backed adapters.
package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"classifier_server/core/port/out"
)

// AuditAdapter records pipeline runs in Postgres.
type AuditAdapter struct {
	db *sqlx.DB
}

func NewAuditAdapter(db *sqlx.DB) *AuditAdapter {
	return &AuditAdapter{db: db}
}

// EnsureSchema creates the audit table and its query index.
func (a *AuditAdapter) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS classification_audit (
			id UUID PRIMARY KEY,
			result_id UUID NOT NULL,
			sender_domain TEXT NOT NULL,
			category TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			provenance TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS classification_audit_created_at_idx
			ON classification_audit (created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
	}
	return nil
}

func (a *AuditAdapter) Record(ctx context.Context, rec out.AuditRecord) error {
	_, err := a.db.NamedExecContext(ctx, `
		INSERT INTO classification_audit
			(id, result_id, sender_domain, category, confidence, provenance, duration_ms, created_at)
		VALUES
			(:id, :result_id, :sender_domain, :category, :confidence, :provenance, :duration_ms, :created_at)`,
		rec)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (a *AuditAdapter) ListRecent(ctx context.Context, limit int) ([]out.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []out.AuditRecord
	err := a.db.SelectContext(ctx, &records, `
		SELECT id, result_id, sender_domain, category, confidence, provenance, duration_ms, created_at
		FROM classification_audit
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return records, nil
}
