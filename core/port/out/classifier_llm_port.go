package out

import (
	"context"

	"classifier_server/core/domain"
)

// LlmClassification is the structured output an LLM provider returns for
// one email.
type LlmClassification struct {
	Category        domain.Category
	Confidence      float64
	BusinessName    string
	BusinessWebsite string
	Industry        string
	Location        string
}

// LlmProvider classifies emails and extracts contact addresses through a
// language model.
type LlmProvider interface {
	// Name identifies the provider for logging and provenance.
	Name() string

	// ClassifyEmail classifies anonymized email content.
	ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (*LlmClassification, error)

	// ExtractContactEmail finds a privacy contact address in page text.
	// Returns the raw model output; callers validate it.
	ExtractContactEmail(ctx context.Context, pageText string) (string, error)
}

// EmbeddingProvider produces embedding vectors for email text.
type EmbeddingProvider interface {
	// Name identifies the provider for logging.
	Name() string

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
