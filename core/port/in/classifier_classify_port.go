package in

import (
	"context"

	"classifier_server/core/domain"
)

// ClassifyService is the inbound port for email classification.
type ClassifyService interface {
	// Classify runs the full pipeline on one email.
	Classify(ctx context.Context, email domain.EmailInput) (*domain.ClassificationResult, error)

	// ClassifyBatch classifies multiple emails, preserving input order.
	// Individual failures yield fallback results, not errors.
	ClassifyBatch(ctx context.Context, emails []domain.EmailInput) ([]*domain.ClassificationResult, error)
}
