package domain

// =============================================================================
// Email Input
// =============================================================================

// EmailInput is the raw email handed to the classification pipeline.
type EmailInput struct {
	Sender   string `json:"sender"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body,omitempty"`
	TextBody string `json:"text_body,omitempty"`
}

// Body returns the preferred body for processing. HTML wins when present
// because the normalizer strips markup before downstream stages run.
func (e EmailInput) Body() string {
	if e.HTMLBody != "" {
		return e.HTMLBody
	}
	return e.TextBody
}

// =============================================================================
// Email Metadata
// =============================================================================

// EmailMetadata holds signals extracted from a normalized email.
type EmailMetadata struct {
	SenderDomain string   `json:"sender_domain"`
	Footer       string   `json:"footer,omitempty"`
	URLs         []string `json:"urls,omitempty"`
}

// FirstURL returns the first extracted URL, or empty when none.
func (m EmailMetadata) FirstURL() string {
	if len(m.URLs) == 0 {
		return ""
	}
	return m.URLs[0]
}
