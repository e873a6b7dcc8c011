package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "classifier"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// Neo4j (alternate vector backend)
	Neo4jURL      string
	Neo4jUsername string
	Neo4jPassword string
	Neo4jDatabase string

	// JWT (admin API)
	JWTSecret string

	// LLM provider chain
	LLMProvider    string // openai | gemini | ollama
	OpenAIAPIKey   string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string
	OllamaBaseURL  string
	OllamaModel    string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Embedding provider chain
	EmbeddingProvider string // openai | gemini | ollama
	OllamaEmbedModel  string

	// Classification
	ConfidenceThreshold float64
	DomainWeightExact   float64
	DomainWeightSimilar float64
	DomainWeightDefault float64
	MatchCandidateCount int
	MaxEmailLength      int
	FooterLineCount     int
	PiiEntities         []string

	// Vector index
	VectorBackend  string // memory | pgvector | neo4j
	VectorEntryTTL time.Duration

	// Privacy scraper
	ScrapeTimeoutSec  int
	ScrapeCacheTTL    time.Duration
	DPOMaxInputLength int

	// Worker
	WorkerID        string
	WorkerMin       int
	WorkerMax       int
	WorkerQueueSize int

	// Consumer (Redis Stream)
	ConsumerBatchSize int
	ConsumerBlockMS   int

	// Gmail ingestion (optional)
	GmailIngestEnabled bool
	GoogleClientID     string
	GoogleClientSecret string
	GmailRefreshToken  string
	GmailPollInterval  time.Duration
	GmailQuery         string

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "classifier"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// Neo4j
		Neo4jURL:      getEnv("NEO4J_URL", ""),
		Neo4jUsername: getEnv("NEO4J_USERNAME", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase: getEnv("NEO4J_DATABASE", "neo4j"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// LLM
		LLMProvider:    getEnv("LLM_PROVIDER", "ollama"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:    getEnv("OLLAMA_MODEL", "llama3"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.1),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 60),

		// Embedding
		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", getEnv("LLM_PROVIDER", "ollama")),
		OllamaEmbedModel:  getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		// Classification
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.85),
		DomainWeightExact:   getEnvFloat("DOMAIN_WEIGHT_EXACT", 1.0),
		DomainWeightSimilar: getEnvFloat("DOMAIN_WEIGHT_SIMILAR", 0.8),
		DomainWeightDefault: getEnvFloat("DOMAIN_WEIGHT_DEFAULT", 0.5),
		MatchCandidateCount: getEnvInt("MATCH_CANDIDATE_COUNT", 10),
		MaxEmailLength:      getEnvInt("MAX_EMAIL_LENGTH", 10000),
		FooterLineCount:     getEnvInt("FOOTER_LINE_COUNT", 3),
		PiiEntities:         getEnvSlice("PII_ENTITIES", []string{"EMAIL_ADDRESS", "PHONE_NUMBER", "CREDIT_CARD"}),

		// Vector index
		VectorBackend:  getEnv("VECTOR_BACKEND", "memory"),
		VectorEntryTTL: time.Duration(getEnvInt("VECTOR_ENTRY_TTL_HOURS", 0)) * time.Hour,

		// Privacy scraper
		ScrapeTimeoutSec:  getEnvInt("SCRAPE_TIMEOUT_SEC", 15),
		ScrapeCacheTTL:    time.Duration(getEnvInt("SCRAPE_CACHE_TTL_HOURS", 24)) * time.Hour,
		DPOMaxInputLength: getEnvInt("DPO_MAX_INPUT_LENGTH", 8000),

		// Worker
		WorkerID:        getEnv("WORKER_ID", generateWorkerID()),
		WorkerMin:       getEnvInt("WORKER_MIN", 2),
		WorkerMax:       getEnvInt("WORKER_MAX", 16),
		WorkerQueueSize: getEnvInt("WORKER_QUEUE_SIZE", 1000),

		// Consumer
		ConsumerBatchSize: getEnvInt("CONSUMER_BATCH_SIZE", 10),
		ConsumerBlockMS:   getEnvInt("CONSUMER_BLOCK_MS", 5000),

		// Gmail ingestion
		GmailIngestEnabled: getEnvBool("GMAIL_INGEST_ENABLED", false),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GmailRefreshToken:  getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailPollInterval:  time.Duration(getEnvInt("GMAIL_POLL_INTERVAL_SEC", 60)) * time.Second,
		GmailQuery:         getEnv("GMAIL_QUERY", "is:unread"),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
