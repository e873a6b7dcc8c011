package domain

import "time"

// =============================================================================
// Category
// =============================================================================

// Category is an email classification category.
type Category string

const (
	CategoryMarketing       Category = "marketing"
	CategoryTransactional   Category = "transactional"
	CategorySurvey          Category = "survey"
	CategoryPersonal        Category = "personal"
	CategoryCustomerSupport Category = "customer_support"
)

// AllCategories lists every valid category.
var AllCategories = []Category{
	CategoryMarketing,
	CategoryTransactional,
	CategorySurvey,
	CategoryPersonal,
	CategoryCustomerSupport,
}

// ParseCategory maps a raw string onto a known category. Unknown or empty
// values fall back to personal.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryMarketing, CategoryTransactional, CategorySurvey,
		CategoryPersonal, CategoryCustomerSupport:
		return Category(s)
	default:
		return CategoryPersonal
	}
}

// =============================================================================
// Provenance
// =============================================================================

// Provenance records which stage of the pipeline produced a classification.
type Provenance string

const (
	ProvenanceVectorMatch Provenance = "vector_match"
	ProvenanceLLM         Provenance = "llm"
	ProvenanceHeuristic   Provenance = "heuristic"
	ProvenanceFallback    Provenance = "fallback"
)

// =============================================================================
// Business Entity
// =============================================================================

// BusinessEntity holds what the pipeline learned about the sending business.
type BusinessEntity struct {
	Name     string `json:"name"`
	Website  string `json:"website,omitempty"`
	DPOEmail string `json:"dpo_email,omitempty"`
	Industry string `json:"industry,omitempty"`
	Location string `json:"location,omitempty"`
}

// =============================================================================
// Extracted User Data
// =============================================================================

// ExtractedUserData holds PII found in the email body before anonymization.
type ExtractedUserData struct {
	Emails      []string `json:"emails,omitempty"`
	Phones      []string `json:"phones,omitempty"`
	CardNumbers []string `json:"card_numbers,omitempty"`
}

// IsEmpty reports whether no PII was found.
func (d ExtractedUserData) IsEmpty() bool {
	return len(d.Emails) == 0 && len(d.Phones) == 0 && len(d.CardNumbers) == 0
}

// =============================================================================
// Classification Result
// =============================================================================

// ClassificationResult is the final output of the pipeline for one email.
type ClassificationResult struct {
	ID          string            `json:"id"`
	Category    Category          `json:"category"`
	Entity      BusinessEntity    `json:"entity"`
	Data        ExtractedUserData `json:"data"`
	Confidence  float64           `json:"confidence"`
	Provenance  Provenance        `json:"provenance"`
	Metadata    EmailMetadata     `json:"metadata"`
	ProcessedAt time.Time         `json:"processed_at"`
}
