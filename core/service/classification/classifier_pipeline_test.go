package classification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"classifier_server/adapter/out/nlp"
	"classifier_server/adapter/out/vector"
	"classifier_server/core/agent/llm"
	"classifier_server/core/domain"
	"classifier_server/core/port/out"
	"classifier_server/pkg/logger"
)

// memoryResultStore records stored results for assertions.
type memoryResultStore struct {
	results map[string]*domain.ClassificationResult
}

func newMemoryResultStore() *memoryResultStore {
	return &memoryResultStore{results: make(map[string]*domain.ClassificationResult)}
}

func (s *memoryResultStore) Store(ctx context.Context, result *domain.ClassificationResult) error {
	s.results[result.ID] = result
	return nil
}

func (s *memoryResultStore) Get(ctx context.Context, id string) (*domain.ClassificationResult, error) {
	return s.results[id], nil
}

func (s *memoryResultStore) QueryByDomain(ctx context.Context, senderDomain string, filter out.ResultFilter) ([]*domain.ClassificationResult, error) {
	var matched []*domain.ClassificationResult
	for _, r := range s.results {
		if r.Metadata.SenderDomain == senderDomain {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

type memoryAuditStore struct {
	records []out.AuditRecord
}

func (s *memoryAuditStore) Record(ctx context.Context, rec out.AuditRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memoryAuditStore) ListRecent(ctx context.Context, limit int) ([]out.AuditRecord, error) {
	return s.records, nil
}

type stubScraper struct {
	email string
	calls int
}

func (s *stubScraper) FindContactEmail(ctx context.Context, websiteURL string) (string, error) {
	s.calls++
	return s.email, nil
}

func newTestPipeline(provider out.LlmProvider, index out.VectorIndex, store out.ResultStore, audit out.AuditStore, scraper out.PrivacyScraper) *Pipeline {
	log := logger.Default()
	matcher := NewMatcher(llm.NewMockEmbeddingProvider(), index, testMatcherConfig(), log)
	chain := NewChain(provider, 8000, log)

	return NewPipeline(PipelineDeps{
		Normalizer: nlp.NewNormalizer(),
		Pii:        nlp.NewPii(nil),
		Metadata:   nlp.NewMetadata(3),
		Matcher:    matcher,
		Chain:      chain,
		Scraper:    scraper,
		Store:      store,
		Audit:      audit,
	}, PipelineConfig{MaxEmailLength: 10000, ConfidenceThreshold: 0.85}, log)
}

func TestPipelineHeuristicPathDoesNotWriteBack(t *testing.T) {
	ctx := context.Background()
	index := vector.NewMemoryIndex(0)
	provider := &fakeProvider{classifyErr: errors.New("provider down")}
	pipeline := newTestPipeline(provider, index, nil, nil, nil)

	result, err := pipeline.Classify(ctx, domain.EmailInput{
		Sender:   "billing@acme.com",
		Subject:  "Invoice for March",
		TextBody: "Your invoice is attached. Payment is due in 30 days.",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if result.Category != domain.CategoryTransactional {
		t.Errorf("category = %v, want transactional", result.Category)
	}
	if result.Confidence != HeuristicConfidence {
		t.Errorf("confidence = %v, want %v", result.Confidence, HeuristicConfidence)
	}
	if result.Provenance != domain.ProvenanceHeuristic {
		t.Errorf("provenance = %v, want heuristic", result.Provenance)
	}

	// Low-confidence output must not land in the index.
	stats, _ := index.Stats(ctx)
	if stats.Entries != 0 {
		t.Errorf("index entries = %d, want 0 after heuristic result", stats.Entries)
	}
}

func TestPipelineLLMPathWritesBackAndServesMatch(t *testing.T) {
	ctx := context.Background()
	index := vector.NewMemoryIndex(0)
	store := newMemoryResultStore()
	audit := &memoryAuditStore{}

	provider := &fakeProvider{
		classification: &out.LlmClassification{
			Category:     domain.CategoryMarketing,
			Confidence:   0.93,
			BusinessName: "Acme",
		},
	}
	pipeline := newTestPipeline(provider, index, store, audit, nil)

	email := domain.EmailInput{
		Sender:   "promo@acme.com",
		Subject:  "Summer sale",
		TextBody: "Huge discounts this week. Unsubscribe anytime.",
	}

	first, err := pipeline.Classify(ctx, email)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if first.Provenance != domain.ProvenanceLLM {
		t.Fatalf("first provenance = %v, want llm", first.Provenance)
	}

	stats, _ := index.Stats(ctx)
	if stats.Entries != 1 {
		t.Fatalf("index entries = %d, want 1 after confident write-back", stats.Entries)
	}

	// The same email again must be answered from the index even with the
	// provider dead.
	provider.classification = nil
	provider.classifyErr = errors.New("provider down")

	second, err := pipeline.Classify(ctx, email)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if second.Provenance != domain.ProvenanceVectorMatch {
		t.Errorf("second provenance = %v, want vector_match", second.Provenance)
	}
	if second.Category != domain.CategoryMarketing {
		t.Errorf("second category = %v, want marketing", second.Category)
	}
	if second.Entity.Name != "Acme" {
		t.Errorf("second entity name = %q, want Acme", second.Entity.Name)
	}

	// Vector-sourced results must not be written back again.
	stats, _ = index.Stats(ctx)
	if stats.Entries != 1 {
		t.Errorf("index entries = %d, want 1 after vector-match result", stats.Entries)
	}

	if len(store.results) != 2 {
		t.Errorf("stored results = %d, want 2", len(store.results))
	}
	if len(audit.records) != 2 {
		t.Errorf("audit records = %d, want 2", len(audit.records))
	}
	for _, rec := range audit.records {
		if rec.SenderDomain != "acme.com" {
			t.Errorf("audit sender domain = %q, want acme.com", rec.SenderDomain)
		}
	}
}

func TestPipelineExtractsPiiBeforeProvider(t *testing.T) {
	ctx := context.Background()
	recorder := &contentRecordingProvider{}
	pipeline := newTestPipeline(recorder, vector.NewMemoryIndex(0), nil, nil, nil)

	result, err := pipeline.Classify(ctx, domain.EmailInput{
		Sender:   "orders@acme.com",
		TextBody: "Your receipt is ready. Questions? Reply to jane.doe@example.com or call +1 415 555 0100.",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if len(result.Data.Emails) != 1 || result.Data.Emails[0] != "jane.doe@example.com" {
		t.Errorf("extracted emails = %v, want [jane.doe@example.com]", result.Data.Emails)
	}
	if len(result.Data.Phones) != 1 {
		t.Errorf("extracted phones = %v, want one entry", result.Data.Phones)
	}

	for _, raw := range []string{"jane.doe@example.com", "415 555 0100"} {
		if strings.Contains(recorder.seenContent, raw) {
			t.Errorf("provider saw raw PII %q", raw)
		}
	}
}

func TestPipelineSkipsDPOLookupForPersonal(t *testing.T) {
	ctx := context.Background()
	scraper := &stubScraper{email: "privacy@acme.com"}
	provider := &fakeProvider{classifyErr: errors.New("provider down")}
	pipeline := newTestPipeline(provider, vector.NewMemoryIndex(0), nil, nil, scraper)

	result, err := pipeline.Classify(ctx, domain.EmailInput{
		Sender:   "friend@gmail.com",
		TextBody: "See you at dinner on Friday! https://acme.com/menu",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if result.Category != domain.CategoryPersonal {
		t.Fatalf("category = %v, want personal", result.Category)
	}
	if scraper.calls != 0 {
		t.Errorf("scraper calls = %d, want 0 for personal email", scraper.calls)
	}
	if result.Entity.DPOEmail != "" {
		t.Errorf("dpo email = %q, want empty", result.Entity.DPOEmail)
	}
}

func TestPipelineEnrichesWebsiteAndDPO(t *testing.T) {
	ctx := context.Background()
	scraper := &stubScraper{email: "privacy@acme.com"}
	provider := &fakeProvider{
		classification: &out.LlmClassification{
			Category:     domain.CategoryTransactional,
			Confidence:   0.9,
			BusinessName: "Acme",
		},
	}
	pipeline := newTestPipeline(provider, vector.NewMemoryIndex(0), nil, nil, scraper)

	result, err := pipeline.Classify(ctx, domain.EmailInput{
		Sender:   "orders@acme.com",
		TextBody: "Your order shipped. Track it at https://acme.com/track/123",
	})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if result.Entity.Website == "" {
		t.Error("website should be filled from email URLs")
	}
	if scraper.calls != 1 {
		t.Errorf("scraper calls = %d, want 1", scraper.calls)
	}
	if result.Entity.DPOEmail != "privacy@acme.com" {
		t.Errorf("dpo email = %q, want privacy@acme.com", result.Entity.DPOEmail)
	}
}

func TestTruncateText(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exact", 5, "exact"},
		{"over limit", "0123456789", 4, "0123..."},
		{"multibyte kept whole", "abécd", 3, "ab..."},
		{"multibyte under limit", "abé", 4, "abé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateText(tt.text, tt.max)
			if got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateText(%q, %d) produced invalid UTF-8", tt.text, tt.max)
			}
		})
	}
}

func TestPipelineTruncatesLongEmails(t *testing.T) {
	ctx := context.Background()
	recorder := &contentRecordingProvider{}
	log := logger.Default()
	matcher := NewMatcher(llm.NewMockEmbeddingProvider(), vector.NewMemoryIndex(0), testMatcherConfig(), log)
	chain := NewChain(recorder, 8000, log)

	pipeline := NewPipeline(PipelineDeps{
		Normalizer: nlp.NewNormalizer(),
		Pii:        nlp.NewPii(nil),
		Metadata:   nlp.NewMetadata(3),
		Matcher:    matcher,
		Chain:      chain,
	}, PipelineConfig{MaxEmailLength: 200, ConfidenceThreshold: 0.85}, log)

	if _, err := pipeline.Classify(ctx, domain.EmailInput{
		Sender:   "billing@acme.com",
		TextBody: strings.Repeat("w ", 500),
	}); err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if len(recorder.seenContent) > 203 {
		t.Errorf("provider saw %d bytes, want at most 203", len(recorder.seenContent))
	}
	if !strings.HasSuffix(recorder.seenContent, "...") {
		t.Error("truncated content should end with ellipsis")
	}
	if !utf8.ValidString(recorder.seenContent) {
		t.Error("provider content should be valid UTF-8")
	}
}

func TestClassifyBatchPreservesOrder(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{classifyErr: errors.New("provider down")}
	pipeline := newTestPipeline(provider, vector.NewMemoryIndex(0), nil, nil, nil)

	emails := []domain.EmailInput{
		{Sender: "promo@acme.com", TextBody: "unsubscribe from this newsletter"},
		{Sender: "billing@acme.com", TextBody: "invoice attached"},
		{Sender: "friend@gmail.com", TextBody: "lunch tomorrow?"},
	}

	results, err := pipeline.ClassifyBatch(ctx, emails)
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}

	want := []domain.Category{domain.CategoryMarketing, domain.CategoryTransactional, domain.CategoryPersonal}
	for i, w := range want {
		if results[i].Category != w {
			t.Errorf("results[%d].Category = %v, want %v", i, results[i].Category, w)
		}
	}
}

// contentRecordingProvider captures the content the chain hands to the model.
type contentRecordingProvider struct {
	seenContent string
}

func (p *contentRecordingProvider) Name() string { return "recording" }

func (p *contentRecordingProvider) ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (*out.LlmClassification, error) {
	p.seenContent = content
	return &out.LlmClassification{Category: domain.CategoryTransactional, Confidence: 0.5}, nil
}

func (p *contentRecordingProvider) ExtractContactEmail(ctx context.Context, pageText string) (string, error) {
	return "none", nil
}
