package classification

import (
	"testing"

	"classifier_server/core/domain"
)

func TestHeuristicClassify(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		name    string
		content string
		want    domain.Category
	}{
		{"unsubscribe keyword", "Click here to unsubscribe from this list", domain.CategoryMarketing},
		{"newsletter keyword", "Welcome to our weekly newsletter", domain.CategoryMarketing},
		{"order keyword", "Your order #1234 has shipped", domain.CategoryTransactional},
		{"invoice keyword", "Invoice attached for March", domain.CategoryTransactional},
		{"survey keyword", "Please take our survey", domain.CategorySurvey},
		{"feedback keyword", "We value your feedback", domain.CategorySurvey},
		{"support keyword", "Your support ticket was updated", domain.CategoryCustomerSupport},
		{"no keywords", "See you at dinner on Friday", domain.CategoryPersonal},
		{"case insensitive", "UNSUBSCRIBE NOW", domain.CategoryMarketing},
		// Buckets are ordered: a marketing term wins over a later bucket's term.
		{"marketing shadows transactional", "unsubscribe to stop invoice emails", domain.CategoryMarketing},
		{"transactional shadows survey", "your receipt, please review it", domain.CategoryTransactional},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := h.Classify(tt.content, domain.EmailMetadata{})
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.content, got, tt.want)
			}
			if conf != HeuristicConfidence {
				t.Errorf("confidence = %v, want %v", conf, HeuristicConfidence)
			}
		})
	}
}

func TestCompanyNameFromDomain(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{"plain domain", "acme.com", "Acme"},
		{"subdomain", "mail.acme.com", "Acme"},
		{"idn label", "über.de", "Über"},
		{"deep subdomain", "a.b.globex.co.uk", "Co"},
		{"single label", "localhost", "Unknown Company"},
		{"empty", "", "Unknown Company"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompanyNameFromDomain(tt.domain); got != tt.want {
				t.Errorf("CompanyNameFromDomain(%q) = %q, want %q", tt.domain, got, tt.want)
			}
		})
	}
}
