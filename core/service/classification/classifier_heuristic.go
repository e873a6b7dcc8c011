package classification

import (
	"strings"
	"unicode/utf8"

	"classifier_server/core/domain"
)

// =============================================================================
// Keyword Heuristic
// =============================================================================

// HeuristicConfidence is the fixed confidence of keyword-based results.
// It sits well under the match threshold so heuristic output is never
// written back to the vector index.
const HeuristicConfidence = 0.3

// keywordBucket ties a category to its trigger words. Buckets are checked
// in order and the first hit wins, so marketing terms shadow later buckets.
type keywordBucket struct {
	category domain.Category
	keywords []string
}

var keywordBuckets = []keywordBucket{
	{domain.CategoryMarketing, []string{"unsubscribe", "newsletter", "promotion", "offer", "sale", "discount"}},
	{domain.CategoryTransactional, []string{"order", "receipt", "confirmation", "invoice", "payment", "account"}},
	{domain.CategorySurvey, []string{"survey", "feedback", "questionnaire", "rate", "review"}},
	{domain.CategoryCustomerSupport, []string{"support", "help", "ticket", "issue", "problem", "assistance"}},
}

// Heuristic classifies by keyword lookup when no model is reachable.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Classify scans the lowercased content against the buckets in order.
// No hit in any bucket means personal.
func (h *Heuristic) Classify(content string, meta domain.EmailMetadata) (domain.Category, float64) {
	lowered := strings.ToLower(content)

	for _, bucket := range keywordBuckets {
		for _, kw := range bucket.keywords {
			if strings.Contains(lowered, kw) {
				return bucket.category, HeuristicConfidence
			}
		}
	}

	return domain.CategoryPersonal, HeuristicConfidence
}

// CompanyNameFromDomain derives a display name from a sender domain:
// the capitalized second-to-last label, e.g. "mail.acme.com" -> "Acme".
func CompanyNameFromDomain(senderDomain string) string {
	parts := strings.Split(senderDomain, ".")
	if len(parts) < 2 {
		return "Unknown Company"
	}

	label := parts[len(parts)-2]
	if label == "" {
		return "Unknown Company"
	}

	first, size := utf8.DecodeRuneInString(label)
	return strings.ToUpper(string(first)) + label[size:]
}
