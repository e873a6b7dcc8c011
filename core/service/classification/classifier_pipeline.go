package classification

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"classifier_server/core/domain"
	"classifier_server/core/port/out"
	"classifier_server/pkg/logger"
)

// =============================================================================
// Classification Pipeline
// =============================================================================

// PipelineConfig holds pipeline-level knobs.
type PipelineConfig struct {
	MaxEmailLength      int
	ConfidenceThreshold float64
}

// PipelineDeps wires the pipeline's collaborators. Scraper and Audit may be
// nil; the stages that use them are skipped.
type PipelineDeps struct {
	Normalizer out.TextNormalizer
	Pii        out.PiiService
	Metadata   out.MetadataService
	Matcher    *Matcher
	Chain      *Chain
	Scraper    out.PrivacyScraper
	Store      out.ResultStore
	Audit      out.AuditStore
}

// Pipeline is the classification service. Each stage degrades on its own:
// a failed stage yields a defined fallback value and the run continues, so
// every email produces a result.
type Pipeline struct {
	deps PipelineDeps
	cfg  PipelineConfig
	log  *logger.Logger
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig, log *logger.Logger) *Pipeline {
	if cfg.MaxEmailLength <= 0 {
		cfg.MaxEmailLength = 10000
	}
	return &Pipeline{
		deps: deps,
		cfg:  cfg,
		log:  log.WithField("component", "pipeline"),
	}
}

// Classify runs the full pipeline on one email.
func (p *Pipeline) Classify(ctx context.Context, email domain.EmailInput) (*domain.ClassificationResult, error) {
	started := time.Now()

	// Normalize and cap length before anything downstream sees the text.
	text := p.deps.Normalizer.Normalize(email.Body())
	if email.Subject != "" {
		text = email.Subject + "\n" + text
	}
	text = truncateText(text, p.cfg.MaxEmailLength)

	// PII comes out before the text reaches any external provider.
	userData := p.deps.Pii.Extract(text)
	anonymized := p.deps.Pii.Anonymize(text)

	meta := p.deps.Metadata.Extract(email.Sender, text)

	result := &domain.ClassificationResult{
		ID:          uuid.NewString(),
		Data:        userData,
		Metadata:    meta,
		ProcessedAt: started,
	}

	// Vector match first. A confident hit answers without an LLM call.
	match := p.deps.Matcher.FindBestMatch(ctx, anonymized, meta)
	if p.deps.Matcher.IsConfidentMatch(match) {
		result.Category = CategoryFromMatch(match)
		result.Entity = EntityFromMatch(match)
		result.Confidence = match.Confidence
		result.Provenance = domain.ProvenanceVectorMatch
	} else {
		chained := p.deps.Chain.ClassifyEmail(ctx, anonymized, meta)
		result.Category = chained.Category
		result.Entity = chained.Entity
		result.Confidence = chained.Confidence
		result.Provenance = chained.Provenance
	}

	p.enrichEntity(ctx, result, meta)

	// Write-back gate: only results strictly above the threshold are worth
	// remembering. Heuristic and fallback output never clears it.
	if result.Confidence > p.cfg.ConfidenceThreshold && result.Provenance != domain.ProvenanceVectorMatch {
		if err := p.deps.Matcher.StoreClassification(ctx, anonymized, meta, result); err != nil {
			p.log.WithError(err).Warn("vector write-back failed")
		}
	}

	p.persist(ctx, result, time.Since(started))

	return result, nil
}

// truncateText caps text at max bytes, cutting on a rune boundary and
// marking the cut with an ellipsis.
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// ClassifyBatch classifies emails sequentially, preserving order. A single
// email never fails the batch; it lands on its fallback result instead.
func (p *Pipeline) ClassifyBatch(ctx context.Context, emails []domain.EmailInput) ([]*domain.ClassificationResult, error) {
	results := make([]*domain.ClassificationResult, len(emails))
	for i, email := range emails {
		result, err := p.Classify(ctx, email)
		if err != nil {
			p.log.WithError(err).WithField("index", i).Warn("batch item failed")
			result = &domain.ClassificationResult{
				ID:          uuid.NewString(),
				Category:    domain.CategoryPersonal,
				Entity:      domain.BusinessEntity{Name: "Unknown"},
				Confidence:  FallbackConfidence,
				Provenance:  domain.ProvenanceFallback,
				ProcessedAt: time.Now(),
			}
		}
		results[i] = result
	}
	return results, nil
}

// enrichEntity fills website and DPO contact gaps. Both lookups are best
// effort; a missing scraper or a scrape failure leaves the fields empty.
func (p *Pipeline) enrichEntity(ctx context.Context, result *domain.ClassificationResult, meta domain.EmailMetadata) {
	if result.Entity.Website == "" {
		result.Entity.Website = meta.FirstURL()
	}

	if result.Entity.DPOEmail != "" || p.deps.Scraper == nil || result.Entity.Website == "" {
		return
	}
	if result.Category == domain.CategoryPersonal {
		return
	}

	dpoEmail, err := p.deps.Scraper.FindContactEmail(ctx, result.Entity.Website)
	if err != nil {
		p.log.WithError(err).WithField("website", result.Entity.Website).Debug("dpo lookup failed")
		return
	}
	result.Entity.DPOEmail = dpoEmail
}

// persist stores the result and audit row. Both are log-only on failure so
// storage outages never break classification.
func (p *Pipeline) persist(ctx context.Context, result *domain.ClassificationResult, elapsed time.Duration) {
	if p.deps.Store != nil {
		if err := p.deps.Store.Store(ctx, result); err != nil {
			p.log.WithError(err).WithField("result_id", result.ID).Error("result store failed")
		}
	}

	if p.deps.Audit != nil {
		rec := out.AuditRecord{
			ID:           uuid.NewString(),
			ResultID:     result.ID,
			SenderDomain: result.Metadata.SenderDomain,
			Category:     string(result.Category),
			Confidence:   result.Confidence,
			Provenance:   string(result.Provenance),
			DurationMS:   elapsed.Milliseconds(),
			CreatedAt:    time.Now(),
		}
		if err := p.deps.Audit.Record(ctx, rec); err != nil {
			p.log.WithError(err).Warn("audit record failed")
		}
	}

	p.log.WithFields(map[string]interface{}{
		"result_id":  result.ID,
		"category":   result.Category,
		"confidence": result.Confidence,
		"provenance": result.Provenance,
	}).WithDuration(elapsed).Info("email classified")
}
