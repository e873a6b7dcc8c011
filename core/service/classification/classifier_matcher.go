package classification

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"classifier_server/core/domain"
	"classifier_server/core/port/out"
	"classifier_server/pkg/logger"
)

// =============================================================================
// Confidence Matcher
// =============================================================================

// Domain prefixes treated as transparent when comparing sender domains.
var similarDomainPrefixes = []string{"mail", "email", "smtp", "noreply", "no-reply"}

// Candidate metadata keys written by StoreClassification and read back by
// CategoryFromMatch / EntityFromMatch.
const (
	metaSenderDomain    = "sender_domain"
	metaCategory        = "email_category"
	metaBusinessName    = "business_name"
	metaBusinessWebsite = "business_website"
	metaIndustry        = "business_industry"
	metaLocation        = "business_location"
	metaDPOEmail        = "dpo_email"
	metaConfidence      = "confidence_score"
)

// MatcherConfig holds the scoring parameters.
type MatcherConfig struct {
	ConfidenceThreshold float64
	WeightExact         float64
	WeightSimilar       float64
	WeightDefault       float64
	CandidateCount      int
}

// Matcher scores vector index candidates against the current email. The
// confidence of a candidate is its cosine similarity multiplied by a weight
// reflecting how close its sender domain is to the email's.
type Matcher struct {
	embedder out.EmbeddingProvider
	index    out.VectorIndex
	cfg      MatcherConfig
	log      *logger.Logger
}

func NewMatcher(embedder out.EmbeddingProvider, index out.VectorIndex, cfg MatcherConfig, log *logger.Logger) *Matcher {
	if cfg.CandidateCount <= 0 {
		cfg.CandidateCount = 10
	}
	return &Matcher{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		log:      log.WithField("component", "matcher"),
	}
}

// buildEmbeddingText assembles the canonical text that gets embedded for
// both search and write-back. The layout must stay stable or stored vectors
// stop matching new queries.
func buildEmbeddingText(content string, meta domain.EmailMetadata) string {
	var sb strings.Builder
	sb.WriteString(content)
	sb.WriteString("\nDomain: ")
	sb.WriteString(meta.SenderDomain)
	if meta.Footer != "" {
		sb.WriteString("\nFooter: ")
		sb.WriteString(meta.Footer)
	}
	if len(meta.URLs) > 0 {
		sb.WriteString("\nURL domains: ")
		sb.WriteString(strings.Join(meta.URLs, " "))
	}
	return sb.String()
}

// FindBestMatch embeds the email and returns the highest-confidence
// candidate, or nil when the index is empty or lookup fails. Lookup
// failures degrade silently so the pipeline can fall through to the LLM.
func (m *Matcher) FindBestMatch(ctx context.Context, content string, meta domain.EmailMetadata) *domain.CandidateMatch {
	embedding, err := m.embedder.Embed(ctx, buildEmbeddingText(content, meta))
	if err != nil {
		m.log.WithError(err).Warn("embedding failed, skipping vector match")
		return nil
	}
	if len(embedding) == 0 {
		return nil
	}

	hits, err := m.index.Search(ctx, embedding, m.cfg.CandidateCount)
	if err != nil {
		m.log.WithError(err).Warn("vector search failed, skipping vector match")
		return nil
	}
	if len(hits) == 0 {
		return nil
	}

	candidates := make([]domain.CandidateMatch, 0, len(hits))
	for _, hit := range hits {
		weight := m.domainWeight(meta.SenderDomain, hit.Metadata[metaSenderDomain])
		candidates = append(candidates, domain.CandidateMatch{
			ID:           hit.ID,
			Similarity:   hit.Similarity,
			DomainWeight: weight,
			Confidence:   hit.Similarity * weight,
			Document:     hit.Document,
			Metadata:     hit.Metadata,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	best := candidates[0]
	return &best
}

// IsConfidentMatch reports whether a candidate clears the threshold.
// The comparison is strictly greater: a confidence exactly at the
// threshold is rejected.
func (m *Matcher) IsConfidentMatch(match *domain.CandidateMatch) bool {
	return match != nil && match.Confidence > m.cfg.ConfidenceThreshold
}

// domainWeight scores how close a candidate's sender domain is to the
// email's. Exact match weighs full, similar domains weigh less, unrelated
// domains weigh least.
func (m *Matcher) domainWeight(emailDomain, candidateDomain string) float64 {
	if candidateDomain == "" {
		return m.cfg.WeightDefault
	}
	if emailDomain == candidateDomain {
		return m.cfg.WeightExact
	}
	if areSimilarDomains(emailDomain, candidateDomain) {
		return m.cfg.WeightSimilar
	}
	return m.cfg.WeightDefault
}

// areSimilarDomains reports whether two domains belong to the same sender.
// The relation is symmetric: equal registrable roots, one being a dot
// suffix of the other, or differing only by a known mail prefix label.
func areSimilarDomains(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	if rootDomain(a) == rootDomain(b) {
		return true
	}

	if strings.HasSuffix(a, "."+b) || strings.HasSuffix(b, "."+a) {
		return true
	}

	if stripMailPrefix(a) == b || stripMailPrefix(b) == a {
		return true
	}

	return false
}

// rootDomain returns the last two labels of a domain, e.g.
// "mail.shop.example.com" -> "example.com".
func rootDomain(d string) string {
	parts := strings.Split(d, ".")
	if len(parts) < 2 {
		return d
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// stripMailPrefix removes a leading transparent mail label, e.g.
// "noreply.example.com" -> "example.com".
func stripMailPrefix(d string) string {
	for _, prefix := range similarDomainPrefixes {
		if strings.HasPrefix(d, prefix+".") {
			return strings.TrimPrefix(d, prefix+".")
		}
	}
	return d
}

// =============================================================================
// Match -> Result mapping
// =============================================================================

// CategoryFromMatch reads the stored category off a candidate. Malformed or
// missing metadata falls back to personal rather than erroring.
func CategoryFromMatch(match *domain.CandidateMatch) domain.Category {
	if match == nil {
		return domain.CategoryPersonal
	}
	return domain.ParseCategory(match.Metadata[metaCategory])
}

// EntityFromMatch reconstructs the business entity stored with a candidate.
// Missing fields come back empty; a missing name becomes "Unknown".
func EntityFromMatch(match *domain.CandidateMatch) domain.BusinessEntity {
	if match == nil {
		return domain.BusinessEntity{Name: "Unknown"}
	}

	entity := domain.BusinessEntity{
		Name:     match.Metadata[metaBusinessName],
		Website:  match.Metadata[metaBusinessWebsite],
		DPOEmail: match.Metadata[metaDPOEmail],
		Industry: match.Metadata[metaIndustry],
		Location: match.Metadata[metaLocation],
	}
	if entity.Name == "" {
		entity.Name = "Unknown"
	}
	return entity
}

// StoreClassification writes a confident result back to the index so future
// emails from the same sender match without an LLM call.
func (m *Matcher) StoreClassification(ctx context.Context, content string, meta domain.EmailMetadata, result *domain.ClassificationResult) error {
	text := buildEmbeddingText(content, meta)

	embedding, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed for write-back: %w", err)
	}
	if len(embedding) == 0 {
		return fmt.Errorf("embed for write-back: empty vector")
	}

	metadata := map[string]string{
		metaSenderDomain: meta.SenderDomain,
		metaCategory:     string(result.Category),
		metaBusinessName: result.Entity.Name,
		metaConfidence:   strconv.FormatFloat(result.Confidence, 'f', 4, 64),
	}
	if result.Entity.Website != "" {
		metadata[metaBusinessWebsite] = result.Entity.Website
	}
	if result.Entity.DPOEmail != "" {
		metadata[metaDPOEmail] = result.Entity.DPOEmail
	}
	if result.Entity.Industry != "" {
		metadata[metaIndustry] = result.Entity.Industry
	}
	if result.Entity.Location != "" {
		metadata[metaLocation] = result.Entity.Location
	}

	_, err = m.index.Add(ctx, out.VectorEntry{
		Document:  text,
		Embedding: embedding,
		Metadata:  metadata,
	})
	return err
}
