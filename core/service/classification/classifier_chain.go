package classification

import (
	"context"
	"regexp"
	"strings"

	"classifier_server/core/domain"
	"classifier_server/core/port/out"
	"classifier_server/pkg/logger"
)

// =============================================================================
// Classification Chain
// =============================================================================

// FallbackConfidence is the confidence of the static last-resort result.
const FallbackConfidence = 0.1

// ChainResult carries a classification plus where it came from.
type ChainResult struct {
	Category   domain.Category
	Confidence float64
	Entity     domain.BusinessEntity
	Provenance domain.Provenance
}

// Chain runs the LLM provider and degrades to the keyword heuristic on any
// provider failure, then to a static result if even that panics.
type Chain struct {
	provider          out.LlmProvider
	heuristic         *Heuristic
	dpoMaxInputLength int
	log               *logger.Logger
}

func NewChain(provider out.LlmProvider, dpoMaxInputLength int, log *logger.Logger) *Chain {
	if dpoMaxInputLength <= 0 {
		dpoMaxInputLength = 8000
	}
	return &Chain{
		provider:          provider,
		heuristic:         NewHeuristic(),
		dpoMaxInputLength: dpoMaxInputLength,
		log:               log.WithField("component", "chain"),
	}
}

// ClassifyEmail never returns an error. Provider failures fall through to
// the heuristic; a panic anywhere yields the static fallback.
func (c *Chain) ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (result ChainResult) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("panic", r).Error("classification chain panicked, using static fallback")
			result = ChainResult{
				Category:   domain.CategoryPersonal,
				Confidence: FallbackConfidence,
				Entity:     domain.BusinessEntity{Name: "Unknown"},
				Provenance: domain.ProvenanceFallback,
			}
		}
	}()

	llmResult, err := c.provider.ClassifyEmail(ctx, content, meta)
	if err == nil && llmResult != nil {
		entity := domain.BusinessEntity{
			Name:     llmResult.BusinessName,
			Website:  llmResult.BusinessWebsite,
			Industry: llmResult.Industry,
			Location: llmResult.Location,
		}
		if entity.Name == "" {
			entity.Name = CompanyNameFromDomain(meta.SenderDomain)
		}
		return ChainResult{
			Category:   llmResult.Category,
			Confidence: llmResult.Confidence,
			Entity:     entity,
			Provenance: domain.ProvenanceLLM,
		}
	}

	if err != nil {
		c.log.WithError(err).WithField("provider", c.provider.Name()).Warn("llm classification failed, using heuristic")
	}

	category, confidence := c.heuristic.Classify(content, meta)
	return ChainResult{
		Category:   category,
		Confidence: confidence,
		Entity:     domain.BusinessEntity{Name: CompanyNameFromDomain(meta.SenderDomain)},
		Provenance: domain.ProvenanceHeuristic,
	}
}

// =============================================================================
// DPO Contact Extraction
// =============================================================================

var emailAddressRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ExtractDPOEmail asks the provider for a privacy contact in page text.
// Input is truncated before the call, and the answer is validated as a
// plain email address. Returns empty string when nothing valid came back.
func (c *Chain) ExtractDPOEmail(ctx context.Context, pageText string) string {
	pageText = truncateText(pageText, c.dpoMaxInputLength)

	answer, err := c.provider.ExtractContactEmail(ctx, pageText)
	if err != nil {
		c.log.WithError(err).Debug("dpo extraction failed")
		return ""
	}

	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "none") {
		return ""
	}
	if !emailAddressRe.MatchString(answer) {
		return ""
	}

	return answer
}
