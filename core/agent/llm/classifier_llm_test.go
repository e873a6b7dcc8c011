package llm

import (
	"context"
	"errors"
	"math"
	"testing"

	"classifier_server/core/domain"
)

func TestParseClassificationOutput(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ClassificationOutput
		wantErr bool
	}{
		{
			name: "plain json",
			raw:  `{"category": "marketing", "confidence": 0.9, "business_name": "Acme"}`,
			want: ClassificationOutput{Category: "marketing", Confidence: 0.9, BusinessName: "Acme"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"category\": \"survey\", \"confidence\": 0.7}\n```",
			want: ClassificationOutput{Category: "survey", Confidence: 0.7},
		},
		{
			name: "bare fence",
			raw:  "```\n{\"category\": \"personal\", \"confidence\": 0.4}\n```",
			want: ClassificationOutput{Category: "personal", Confidence: 0.4},
		},
		{
			name: "surrounding whitespace",
			raw:  "  \n{\"category\": \"transactional\", \"confidence\": 0.8}\n  ",
			want: ClassificationOutput{Category: "transactional", Confidence: 0.8},
		},
		{
			name: "confidence above one is clamped",
			raw:  `{"category": "marketing", "confidence": 1.7}`,
			want: ClassificationOutput{Category: "marketing", Confidence: 1.0},
		},
		{
			name: "negative confidence is clamped",
			raw:  `{"category": "marketing", "confidence": -0.3}`,
			want: ClassificationOutput{Category: "marketing", Confidence: 0},
		},
		{
			name:    "not json",
			raw:     "the email is marketing",
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClassificationOutput(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseClassificationOutput: %v", err)
			}
			if *got != tt.want {
				t.Errorf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestProviderOrder(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		want      []string
	}{
		{"openai first", "openai", []string{"openai", "gemini", "ollama"}},
		{"gemini first", "gemini", []string{"gemini", "openai", "ollama"}},
		{"ollama first", "ollama", []string{"ollama", "openai", "gemini"}},
		{"unknown keeps default order", "azure", []string{"openai", "gemini", "ollama"}},
		{"empty keeps default order", "", []string{"openai", "gemini", "ollama"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := providerOrder(tt.preferred)
			if len(got) != len(tt.want) {
				t.Fatalf("order = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("order = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()

	if _, err := m.ClassifyEmail(context.Background(), "hello", domain.EmailMetadata{}); !errors.Is(err, ErrMockProvider) {
		t.Errorf("ClassifyEmail err = %v, want ErrMockProvider", err)
	}

	answer, err := m.ExtractContactEmail(context.Background(), "page text")
	if err != nil {
		t.Fatalf("ExtractContactEmail: %v", err)
	}
	if answer != "none" {
		t.Errorf("ExtractContactEmail = %q, want none", answer)
	}
}

func TestMockEmbeddingDeterministic(t *testing.T) {
	m := NewMockEmbeddingProvider()
	ctx := context.Background()

	a, err := m.Embed(ctx, "the same text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := m.Embed(ctx, "the same text")
	c, _ := m.Embed(ctx, "different text")

	if len(a) != 1536 {
		t.Fatalf("dimensions = %d, want 1536", len(a))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("identical text produced different embeddings at index %d", i)
		}
	}

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different text produced identical embeddings")
	}
}

func TestMockEmbeddingUnitLength(t *testing.T) {
	m := NewMockEmbeddingProvider()

	vec, err := m.Embed(context.Background(), "normalize me")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)

	if math.Abs(norm-1.0) > 1e-3 {
		t.Errorf("vector norm = %v, want 1.0", norm)
	}
}
