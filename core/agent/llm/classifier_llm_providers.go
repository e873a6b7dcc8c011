package llm

import (
	"context"
	"fmt"

	"classifier_server/config"
	"classifier_server/core/domain"
	"classifier_server/core/port/out"
	"classifier_server/pkg/apperr"
	"classifier_server/pkg/logger"
	"classifier_server/pkg/resilience"
)

// =============================================================================
// Provider Chain
// =============================================================================

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// providerOrder returns the fallback order with the preferred provider first.
func providerOrder(preferred string) []string {
	order := []string{"openai", "gemini", "ollama"}

	result := make([]string, 0, len(order))
	for _, name := range order {
		if name == preferred {
			result = append(result, name)
			break
		}
	}
	for _, name := range order {
		if name != preferred {
			result = append(result, name)
		}
	}
	return result
}

func newProviderClient(name string, cfg *config.Config) (*Client, error) {
	switch name {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, apperr.ProviderError("openai", fmt.Errorf("missing OPENAI_API_KEY"))
		}
		return NewClientWithConfig(ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		}), nil

	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, apperr.ProviderError("gemini", fmt.Errorf("missing GEMINI_API_KEY"))
		}
		return NewClientWithConfig(ClientConfig{
			APIKey:         cfg.GeminiAPIKey,
			BaseURL:        geminiBaseURL,
			Model:          cfg.GeminiModel,
			EmbeddingModel: "text-embedding-004",
			MaxTokens:      cfg.LLMMaxTokens,
			Temperature:    cfg.LLMTemperature,
		}), nil

	case "ollama":
		if cfg.OllamaBaseURL == "" {
			return nil, apperr.ProviderError("ollama", fmt.Errorf("missing OLLAMA_BASE_URL"))
		}
		return NewClientWithConfig(ClientConfig{
			APIKey:         "ollama",
			BaseURL:        cfg.OllamaBaseURL + "/v1",
			Model:          cfg.OllamaModel,
			EmbeddingModel: cfg.OllamaEmbedModel,
			MaxTokens:      cfg.LLMMaxTokens,
			Temperature:    cfg.LLMTemperature,
		}), nil
	}

	return nil, apperr.ProviderError(name, fmt.Errorf("unknown provider"))
}

// NewProviderChain builds the classification provider. Providers are tried
// in fallback order at startup; the first one that can be constructed wins.
// The mock provider is the terminal fallback so startup never fails.
func NewProviderChain(cfg *config.Config, log *logger.Logger) out.LlmProvider {
	for _, name := range providerOrder(cfg.LLMProvider) {
		client, err := newProviderClient(name, cfg)
		if err != nil {
			log.WithError(err).WithField("provider", name).Warn("llm provider unavailable, trying next")
			continue
		}
		log.WithField("provider", name).Info("llm provider selected")
		return newProvider(name, client)
	}

	log.Warn("no llm provider configured, using mock")
	return NewMockProvider()
}

// NewEmbeddingChain builds the embedding provider with the same fallback
// order. The deterministic mock embedder is the terminal fallback.
func NewEmbeddingChain(cfg *config.Config, log *logger.Logger) out.EmbeddingProvider {
	for _, name := range providerOrder(cfg.EmbeddingProvider) {
		client, err := newProviderClient(name, cfg)
		if err != nil {
			log.WithError(err).WithField("provider", name).Warn("embedding provider unavailable, trying next")
			continue
		}
		log.WithField("provider", name).Info("embedding provider selected")
		return newProvider(name, client)
	}

	log.Warn("no embedding provider configured, using mock")
	return NewMockEmbeddingProvider()
}

// =============================================================================
// Provider
// =============================================================================

// provider wraps a Client behind a circuit breaker. A tripped breaker makes
// calls fail fast, which the pipeline absorbs with its heuristic fallback.
type provider struct {
	name    string
	client  *Client
	breaker *resilience.CircuitBreaker
}

func newProvider(name string, client *Client) *provider {
	return &provider{
		name:    name,
		client:  client,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm-" + name)),
	}
}

func (p *provider) Name() string {
	return p.name
}

func (p *provider) ClassifyEmail(ctx context.Context, content string, meta domain.EmailMetadata) (*out.LlmClassification, error) {
	var output *ClassificationOutput

	err := p.breaker.Execute(func() error {
		var callErr error
		output, callErr = p.client.ClassifyEmail(ctx, content, meta)
		return callErr
	})
	if err != nil {
		return nil, apperr.ProviderError(p.name, err)
	}

	return &out.LlmClassification{
		Category:        domain.ParseCategory(output.Category),
		Confidence:      output.Confidence,
		BusinessName:    output.BusinessName,
		BusinessWebsite: output.BusinessWebsite,
		Industry:        output.Industry,
		Location:        output.Location,
	}, nil
}

func (p *provider) ExtractContactEmail(ctx context.Context, pageText string) (string, error) {
	var answer string

	err := p.breaker.Execute(func() error {
		var callErr error
		answer, callErr = p.client.ExtractContactEmail(ctx, pageText)
		return callErr
	})
	if err != nil {
		return "", apperr.ProviderError(p.name, err)
	}

	return answer, nil
}

func (p *provider) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	err := p.breaker.Execute(func() error {
		var callErr error
		embedding, callErr = p.client.Embedding(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, apperr.ProviderError(p.name, err)
	}

	return embedding, nil
}
