package classification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"classifier_server/core/domain"
	"classifier_server/core/port/out"
	"classifier_server/pkg/logger"
)

// fakeProvider is a scriptable LlmProvider for chain tests.
type fakeProvider struct {
	classification *out.LlmClassification
	classifyErr    error

	extractAnswer string
	extractErr    error
	extractInput  string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (*out.LlmClassification, error) {
	if f.classifyErr != nil {
		return nil, f.classifyErr
	}
	return f.classification, nil
}

func (f *fakeProvider) ExtractContactEmail(ctx context.Context, pageText string) (string, error) {
	f.extractInput = pageText
	return f.extractAnswer, f.extractErr
}

func TestChainUsesProviderResult(t *testing.T) {
	provider := &fakeProvider{
		classification: &out.LlmClassification{
			Category:     domain.CategoryMarketing,
			Confidence:   0.91,
			BusinessName: "Acme",
		},
	}
	chain := NewChain(provider, 8000, logger.Default())

	result := chain.ClassifyEmail(context.Background(), "summer sale", domain.EmailMetadata{SenderDomain: "acme.com"})

	if result.Category != domain.CategoryMarketing {
		t.Errorf("category = %v, want marketing", result.Category)
	}
	if result.Confidence != 0.91 {
		t.Errorf("confidence = %v, want 0.91", result.Confidence)
	}
	if result.Provenance != domain.ProvenanceLLM {
		t.Errorf("provenance = %v, want llm", result.Provenance)
	}
	if result.Entity.Name != "Acme" {
		t.Errorf("entity name = %q, want Acme", result.Entity.Name)
	}
}

func TestChainFallsBackToHeuristicOnProviderError(t *testing.T) {
	provider := &fakeProvider{classifyErr: errors.New("model unreachable")}
	chain := NewChain(provider, 8000, logger.Default())

	result := chain.ClassifyEmail(context.Background(), "your invoice is attached", domain.EmailMetadata{SenderDomain: "billing.acme.com"})

	if result.Category != domain.CategoryTransactional {
		t.Errorf("category = %v, want transactional", result.Category)
	}
	if result.Confidence != HeuristicConfidence {
		t.Errorf("confidence = %v, want %v", result.Confidence, HeuristicConfidence)
	}
	if result.Provenance != domain.ProvenanceHeuristic {
		t.Errorf("provenance = %v, want heuristic", result.Provenance)
	}
	if result.Entity.Name != "Acme" {
		t.Errorf("entity name = %q, want Acme (derived from domain)", result.Entity.Name)
	}
}

func TestChainFillsMissingBusinessName(t *testing.T) {
	provider := &fakeProvider{
		classification: &out.LlmClassification{
			Category:   domain.CategorySurvey,
			Confidence: 0.7,
		},
	}
	chain := NewChain(provider, 8000, logger.Default())

	result := chain.ClassifyEmail(context.Background(), "rate your experience", domain.EmailMetadata{SenderDomain: "surveys.globex.com"})

	if result.Entity.Name != "Globex" {
		t.Errorf("entity name = %q, want Globex", result.Entity.Name)
	}
}

func TestExtractDPOEmail(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		want   string
	}{
		{"valid address", "privacy@acme.com", nil, "privacy@acme.com"},
		{"valid with whitespace", "  dpo@acme.co.uk\n", nil, "dpo@acme.co.uk"},
		{"none sentinel", "none", nil, ""},
		{"none uppercase", "NONE", nil, ""},
		{"empty answer", "", nil, ""},
		{"not an address", "the DPO can be reached at privacy@acme.com", nil, ""},
		{"missing tld", "privacy@acme", nil, ""},
		{"provider failure", "", errors.New("timeout"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{extractAnswer: tt.answer, extractErr: tt.err}
			chain := NewChain(provider, 8000, logger.Default())

			if got := chain.ExtractDPOEmail(context.Background(), "some page text"); got != tt.want {
				t.Errorf("ExtractDPOEmail = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractDPOEmailTruncatesInput(t *testing.T) {
	provider := &fakeProvider{extractAnswer: "privacy@acme.com"}
	chain := NewChain(provider, 8000, logger.Default())

	longText := strings.Repeat("x", 20000)
	chain.ExtractDPOEmail(context.Background(), longText)

	if len(provider.extractInput) != 8003 {
		t.Errorf("provider input length = %d, want 8003 (8000 + ellipsis)", len(provider.extractInput))
	}
	if !strings.HasSuffix(provider.extractInput, "...") {
		t.Error("truncated input should end with ellipsis")
	}
}
