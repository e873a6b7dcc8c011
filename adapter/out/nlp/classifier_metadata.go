package nlp

import (
	"regexp"
	"strings"

	"classifier_server/core/domain"
)

// =============================================================================
// Metadata Extraction
// =============================================================================

var urlRe = regexp.MustCompile(`https?://[^\s<>"']+[^\s<>"'.,)]`)

// Footer phrases counted as indicators when deciding whether the trailing
// lines of an email form a footer.
var footerIndicators = []string{
	"unsubscribe", "privacy", "terms", "copyright", "all rights reserved",
	"you are receiving this", "opt out", "contact us",
}

// Metadata extracts sender domain, footer and URLs from normalized text.
type Metadata struct {
	footerLineCount int
}

func NewMetadata(footerLineCount int) *Metadata {
	if footerLineCount <= 0 {
		footerLineCount = 3
	}
	return &Metadata{footerLineCount: footerLineCount}
}

// Extract derives the metadata signals for one email. URLs are
// deduplicated in order of first appearance.
func (m *Metadata) Extract(sender, text string) domain.EmailMetadata {
	return domain.EmailMetadata{
		SenderDomain: SenderDomain(sender),
		Footer:       m.extractFooter(text),
		URLs:         dedupe(urlRe.FindAllString(text, -1)),
	}
}

// SenderDomain returns the lowercased domain part of an address, or
// "unknown" when the address has no '@'.
func SenderDomain(sender string) string {
	at := strings.LastIndex(sender, "@")
	if at < 0 || at == len(sender)-1 {
		return "unknown"
	}
	d := strings.ToLower(sender[at+1:])
	return strings.TrimSuffix(d, ">")
}

// extractFooter takes the last non-empty lines and keeps them only when
// they look like a footer: at least two indicator phrases, or any email
// address or URL present.
func (m *Metadata) extractFooter(text string) string {
	lines := strings.Split(text, "\n")

	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < m.footerLineCount; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		tail = append([]string{line}, tail...)
	}
	if len(tail) == 0 {
		return ""
	}

	footer := strings.Join(tail, "\n")
	lowered := strings.ToLower(footer)

	indicators := 0
	for _, phrase := range footerIndicators {
		if strings.Contains(lowered, phrase) {
			indicators++
		}
	}

	if indicators >= 2 || piiEmailRe.MatchString(footer) || urlRe.MatchString(footer) {
		return footer
	}
	return ""
}
