package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"classifier_server/core/domain"
	"classifier_server/core/port/out"
)

// =============================================================================
// Mock Providers
// =============================================================================

// ErrMockProvider is returned by the mock classification provider so the
// pipeline exercises its heuristic fallback instead of trusting fake output.
var ErrMockProvider = errors.New("mock provider has no model")

// MockProvider is the terminal classification provider. Classification
// always errors; contact extraction always answers "none".
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (*out.LlmClassification, error) {
	return nil, ErrMockProvider
}

func (m *MockProvider) ExtractContactEmail(ctx context.Context, pageText string) (string, error) {
	return "none", nil
}

// MockEmbeddingProvider produces deterministic unit-length vectors derived
// from the text hash. Identical text always embeds identically, so vector
// matching stays testable without a model.
type MockEmbeddingProvider struct {
	dimensions int
}

func NewMockEmbeddingProvider() *MockEmbeddingProvider {
	return &MockEmbeddingProvider{dimensions: 1536}
}

func (m *MockEmbeddingProvider) Name() string {
	return "mock"
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	seed := sha256.Sum256([]byte(text))

	vector := make([]float32, m.dimensions)
	var norm float64

	state := seed
	for i := 0; i < m.dimensions; i++ {
		if i%8 == 0 && i > 0 {
			state = sha256.Sum256(state[:])
		}
		bits := binary.BigEndian.Uint32(state[(i%8)*4 : (i%8)*4+4])
		v := float64(bits)/float64(math.MaxUint32)*2 - 1
		vector[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vector {
			vector[i] = float32(float64(vector[i]) / norm)
		}
	}

	return vector, nil
}
