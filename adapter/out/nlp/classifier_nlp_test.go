package nlp

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "empty",
			raw:  "",
			want: "",
		},
		{
			name: "plain text whitespace collapse",
			raw:  "hello   world\t\there",
			want: "hello world here",
		},
		{
			name: "blank line runs collapse",
			raw:  "first\n\n\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "basic html",
			raw:  "<p>Hello <b>world</b></p><p>Second paragraph</p>",
			want: "Hello world\n\nSecond paragraph",
		},
		{
			name: "script dropped",
			raw:  "<div>visible</div><script>var hidden = 1;</script><div>also visible</div>",
			want: "visible\n\nalso visible",
		},
		{
			name: "style dropped",
			raw:  "<style>.a { color: red }</style><p>content</p>",
			want: "content",
		},
		{
			name: "br becomes newline",
			raw:  "line one<br/>line two",
			want: "line one\nline two",
		},
		{
			name: "list items on own lines",
			raw:  "<ul><li>one</li><li>two</li></ul>",
			want: "one\n\ntwo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAnonymize(t *testing.T) {
	p := NewPii(nil)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "email masked",
			text: "contact jane.doe@example.com for details",
			want: "contact <EMAIL_ADDRESS> for details",
		},
		{
			name: "phone masked",
			text: "call +1 415 555 0100 today",
			want: "call <PHONE_NUMBER> today",
		},
		{
			name: "card masked before phone pattern sees it",
			text: "card 4111 1111 1111 1111 on file",
			want: "card <CREDIT_CARD> on file",
		},
		{
			name: "mixed",
			text: "jane@example.com / +44 20 7946 0958",
			want: "<EMAIL_ADDRESS> / <PHONE_NUMBER>",
		},
		{
			name: "no pii",
			text: "nothing sensitive here",
			want: "nothing sensitive here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Anonymize(tt.text); got != tt.want {
				t.Errorf("Anonymize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnonymizeRespectsEntitySet(t *testing.T) {
	p := NewPii([]string{EntityEmailAddress})

	got := p.Anonymize("jane@example.com or +1 415 555 0100")
	if !strings.Contains(got, "<EMAIL_ADDRESS>") {
		t.Errorf("email should be masked, got %q", got)
	}
	if strings.Contains(got, "<PHONE_NUMBER>") {
		t.Errorf("phone should not be masked, got %q", got)
	}
}

func TestExtract(t *testing.T) {
	p := NewPii(nil)

	text := "Reply to jane@example.com or bob@example.com. " +
		"jane@example.com is primary. Call +1 415 555 0100. " +
		"Card: 4111 1111 1111 1111."

	data := p.Extract(text)

	if len(data.Emails) != 2 || data.Emails[0] != "jane@example.com" || data.Emails[1] != "bob@example.com" {
		t.Errorf("emails = %v, want deduplicated [jane@example.com bob@example.com]", data.Emails)
	}
	if len(data.Phones) != 1 {
		t.Errorf("phones = %v, want one entry", data.Phones)
	}
	if len(data.CardNumbers) != 1 {
		t.Errorf("cards = %v, want one entry", data.CardNumbers)
	}
	if data.IsEmpty() {
		t.Error("IsEmpty should be false")
	}
}

func TestExtractCardNotCountedAsPhone(t *testing.T) {
	p := NewPii(nil)

	data := p.Extract("charge to 4111 1111 1111 1111 thanks")
	if len(data.CardNumbers) != 1 {
		t.Fatalf("cards = %v, want one entry", data.CardNumbers)
	}
	if len(data.Phones) != 0 {
		t.Errorf("phones = %v, want none (card digits must not count as phone)", data.Phones)
	}
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"plain address", "jane@acme.com", "acme.com"},
		{"display name form", "Jane Doe <jane@Acme.COM>", "acme.com"},
		{"no at sign", "not-an-address", "unknown"},
		{"empty", "", "unknown"},
		{"trailing at", "jane@", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SenderDomain(tt.sender); got != tt.want {
				t.Errorf("SenderDomain(%q) = %q, want %q", tt.sender, got, tt.want)
			}
		})
	}
}

func TestExtractFooter(t *testing.T) {
	m := NewMetadata(3)

	tests := []struct {
		name       string
		text       string
		wantFooter bool
	}{
		{
			name:       "two indicators",
			text:       "Hello\n\nBest regards\nUnsubscribe here\nPrivacy policy applies",
			wantFooter: true,
		},
		{
			name:       "single indicator no links",
			text:       "Hello\n\nSee our terms sometime",
			wantFooter: false,
		},
		{
			name:       "url counts",
			text:       "Hello\n\nVisit https://acme.com for more",
			wantFooter: true,
		},
		{
			name:       "email address counts",
			text:       "Hello\n\nQuestions? support@acme.com",
			wantFooter: true,
		},
		{
			name:       "plain sign-off",
			text:       "Hello\n\nCheers,\nJane",
			wantFooter: false,
		},
		{
			name:       "empty text",
			text:       "",
			wantFooter: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			footer := m.extractFooter(tt.text)
			if (footer != "") != tt.wantFooter {
				t.Errorf("extractFooter(%q) = %q, wantFooter=%v", tt.text, footer, tt.wantFooter)
			}
		})
	}
}

func TestMetadataExtract(t *testing.T) {
	m := NewMetadata(3)

	text := "Check https://acme.com/sale and http://cdn.acme.com/img.png.\n" +
		"Unsubscribe at https://acme.com/unsub"

	meta := m.Extract("promo@acme.com", text)

	if meta.SenderDomain != "acme.com" {
		t.Errorf("sender domain = %q, want acme.com", meta.SenderDomain)
	}
	if len(meta.URLs) != 3 {
		t.Errorf("urls = %v, want 3 entries", meta.URLs)
	}
	for _, u := range meta.URLs {
		if strings.HasSuffix(u, ".") {
			t.Errorf("url %q should not keep trailing punctuation", u)
		}
	}
	if meta.Footer == "" {
		t.Error("footer with unsubscribe link should be kept")
	}
}

func TestMetadataExtractDeduplicatesURLs(t *testing.T) {
	m := NewMetadata(3)

	text := "Shop https://acme.com/sale today.\n" +
		"Reminder: https://acme.com/sale ends soon, details at https://other.com/x"

	meta := m.Extract("promo@acme.com", text)

	want := []string{"https://acme.com/sale", "https://other.com/x"}
	if len(meta.URLs) != len(want) {
		t.Fatalf("urls = %v, want %v", meta.URLs, want)
	}
	for i := range want {
		if meta.URLs[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, meta.URLs[i], want[i])
		}
	}
}
