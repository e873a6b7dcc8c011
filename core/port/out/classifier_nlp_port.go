package out

import "classifier_server/core/domain"

// TextNormalizer converts raw email bodies into plain text.
type TextNormalizer interface {
	// Normalize strips markup and collapses whitespace. Input that is not
	// HTML passes through with whitespace normalization only.
	Normalize(raw string) string
}

// PiiService detects and masks personally identifiable information.
type PiiService interface {
	// Anonymize replaces configured PII entities with typed placeholders.
	Anonymize(text string) string

	// Extract returns the PII found in the text without modifying it.
	Extract(text string) domain.ExtractedUserData
}

// MetadataService derives structural signals from a normalized email.
type MetadataService interface {
	// Extract pulls sender domain, footer and URLs from the email text.
	Extract(sender, text string) domain.EmailMetadata
}
