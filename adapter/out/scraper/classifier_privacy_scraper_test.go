package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classifier_server/pkg/logger"
)

type stubExtractor struct {
	email string
	calls int
}

func (e *stubExtractor) ExtractDPOEmail(ctx context.Context, pageText string) string {
	e.calls++
	return e.email
}

func TestSiteRoot(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"full url", "https://acme.com/track/123", "https://acme.com", false},
		{"http preserved", "http://acme.com/page", "http://acme.com", false},
		{"bare host", "acme.com", "https://acme.com", false},
		{"host with path no scheme", "acme.com/about", "https://acme.com", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := siteRoot(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("siteRoot(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("siteRoot(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDPOPatterns(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string
	}{
		{
			name: "prefixed address",
			page: "Contact our team at dpo@acme.com for privacy questions.",
			want: "dpo@acme.com",
		},
		{
			name: "privacy prefix",
			page: "Write to Privacy@Acme.com anytime.",
			want: "privacy@acme.com",
		},
		{
			name: "officer title with nearby address",
			page: "Our Data Protection Officer can be reached at legal@acme.com.",
			want: "legal@acme.com",
		},
		{
			name: "no address",
			page: "We take privacy seriously. Call us instead.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ""
			for _, re := range dpoPatterns {
				match := re.FindStringSubmatch(tt.page)
				if len(match) == 0 {
					continue
				}
				if len(match) > 1 && match[1] != "" {
					got = match[1]
				} else {
					got = match[0]
				}
				break
			}
			if got != "" {
				got = strings.ToLower(got)
			}
			if got != tt.want {
				t.Errorf("pattern match = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindContactEmailFromPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/privacy" {
			w.Write([]byte("Questions? Email dpo@acme.com."))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := NewPrivacyScraper(server.Client(), nil, nil, 0, logger.Default())

	email, err := s.FindContactEmail(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FindContactEmail: %v", err)
	}
	if email != "dpo@acme.com" {
		t.Errorf("email = %q, want dpo@acme.com", email)
	}
}

func TestFindContactEmailTriesPathsInOrder(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/legal/privacy" {
			w.Write([]byte("Reach our privacy officer at privacy@acme.com"))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := NewPrivacyScraper(server.Client(), nil, nil, 0, logger.Default())

	email, err := s.FindContactEmail(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FindContactEmail: %v", err)
	}
	if email != "privacy@acme.com" {
		t.Errorf("email = %q, want privacy@acme.com", email)
	}

	want := []string{"/privacy", "/privacy-policy", "/privacy_policy", "/privacypolicy", "/legal/privacy"}
	if len(paths) != len(want) {
		t.Fatalf("requested paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestFindContactEmailFallsBackToExtractor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/privacy" {
			// A page with an address none of the patterns recognize.
			w.Write([]byte("For data matters email hello@acme.com."))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	extractor := &stubExtractor{email: "hello@acme.com"}
	s := NewPrivacyScraper(server.Client(), extractor, nil, 0, logger.Default())

	email, err := s.FindContactEmail(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FindContactEmail: %v", err)
	}
	if email != "hello@acme.com" {
		t.Errorf("email = %q, want hello@acme.com", email)
	}
	if extractor.calls == 0 {
		t.Error("extractor should have been consulted")
	}
}

func TestFindContactEmailFallsBackToRootPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte("Welcome. Privacy questions go to privacy@acme.com."))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := NewPrivacyScraper(server.Client(), nil, nil, 0, logger.Default())

	email, err := s.FindContactEmail(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FindContactEmail: %v", err)
	}
	if email != "privacy@acme.com" {
		t.Errorf("email = %q, want privacy@acme.com from the landing page", email)
	}
}

func TestFindContactEmailNoPrivacyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer server.Close()

	s := NewPrivacyScraper(server.Client(), nil, nil, 0, logger.Default())

	email, err := s.FindContactEmail(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FindContactEmail: %v", err)
	}
	if email != "" {
		t.Errorf("email = %q, want empty for a site without a privacy page", email)
	}
}
