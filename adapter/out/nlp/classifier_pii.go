package nlp

import (
	"regexp"

	"classifier_server/core/domain"
)

// =============================================================================
// PII Detection
// =============================================================================

// Entity names accepted in the configured entity set.
const (
	EntityEmailAddress = "EMAIL_ADDRESS"
	EntityPhoneNumber  = "PHONE_NUMBER"
	EntityCreditCard   = "CREDIT_CARD"
)

var (
	piiEmailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	piiPhoneRe = regexp.MustCompile(`\+?\d[\d\s().-]{7,}\d`)
	piiCardRe  = regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`)
)

// Pii detects and masks the configured PII entity types.
type Pii struct {
	entities map[string]bool
}

// NewPii creates a PII service handling the given entity set. An empty set
// enables every supported entity.
func NewPii(entities []string) *Pii {
	enabled := make(map[string]bool)
	if len(entities) == 0 {
		entities = []string{EntityEmailAddress, EntityPhoneNumber, EntityCreditCard}
	}
	for _, e := range entities {
		enabled[e] = true
	}
	return &Pii{entities: enabled}
}

// Anonymize replaces detected PII with typed placeholders like
// <EMAIL_ADDRESS>. Card numbers are masked before phone numbers because
// the phone pattern also matches long digit runs.
func (p *Pii) Anonymize(text string) string {
	if p.entities[EntityCreditCard] {
		text = piiCardRe.ReplaceAllString(text, "<"+EntityCreditCard+">")
	}
	if p.entities[EntityEmailAddress] {
		text = piiEmailRe.ReplaceAllString(text, "<"+EntityEmailAddress+">")
	}
	if p.entities[EntityPhoneNumber] {
		text = piiPhoneRe.ReplaceAllString(text, "<"+EntityPhoneNumber+">")
	}
	return text
}

// Extract returns the PII found in the text, deduplicated in order of first
// appearance.
func (p *Pii) Extract(text string) domain.ExtractedUserData {
	var data domain.ExtractedUserData

	if p.entities[EntityCreditCard] {
		data.CardNumbers = dedupe(piiCardRe.FindAllString(text, -1))
	}
	if p.entities[EntityEmailAddress] {
		data.Emails = dedupe(piiEmailRe.FindAllString(text, -1))
	}
	if p.entities[EntityPhoneNumber] {
		masked := text
		if p.entities[EntityCreditCard] {
			masked = piiCardRe.ReplaceAllString(masked, "")
		}
		data.Phones = dedupe(piiPhoneRe.FindAllString(masked, -1))
	}

	return data
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
