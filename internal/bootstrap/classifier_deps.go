package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"classifier_server/adapter/out/mongodb"
	"classifier_server/adapter/out/nlp"
	"classifier_server/adapter/out/persistence"
	"classifier_server/adapter/out/scraper"
	"classifier_server/adapter/out/vector"
	"classifier_server/config"
	"classifier_server/core/agent/llm"
	"classifier_server/core/port/in"
	"classifier_server/core/port/out"
	"classifier_server/core/service/classification"
	"classifier_server/infra/database"
	"classifier_server/internal/stream"
	"classifier_server/pkg/cache"
	"classifier_server/pkg/httputil"
	"classifier_server/pkg/logger"
)

// Dependencies holds every wired component. Optional infrastructure that is
// not configured stays nil and the dependent features degrade.
type Dependencies struct {
	Config *config.Config
	Log    *logger.Logger

	// Infrastructure
	Postgres *pgxpool.Pool
	SqlxDB   *sqlx.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
	Neo4j    neo4j.DriverWithContext

	// Ports
	VectorIndex out.VectorIndex
	Embedder    out.EmbeddingProvider
	LlmProvider out.LlmProvider
	ResultStore out.ResultStore
	AuditStore  out.AuditStore
	Scraper     out.PrivacyScraper

	// Services
	Matcher  *classification.Matcher
	Chain    *classification.Chain
	Pipeline in.ClassifyService

	// Streaming
	RedisStream *stream.RedisStream
	Producer    *stream.Producer
}

// NewDependencies wires the full dependency graph.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := logger.Default()
	deps := &Dependencies{Config: cfg, Log: log}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Redis (streams, scrape cache)
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, async features disabled")
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })

			deps.RedisStream = stream.NewRedisStream(redisClient, "classifier-workers")
			deps.Producer = stream.NewProducer(deps.RedisStream)
		}
	}

	// Postgres (pgvector index, audit)
	if cfg.DatabaseURL != "" {
		pool, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		deps.Postgres = pool
		cleanups = append(cleanups, pool.Close)

		sqlxDB, err := database.NewPostgresSqlx(cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("postgres sqlx: %w", err)
		}
		deps.SqlxDB = sqlxDB
		cleanups = append(cleanups, func() { sqlxDB.Close() })

		auditAdapter := persistence.NewAuditAdapter(sqlxDB)
		if err := auditAdapter.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("audit schema: %w", err)
		}
		deps.AuditStore = auditAdapter
	}

	// MongoDB (result store)
	if cfg.MongoDBURL != "" {
		mongoClient, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("mongodb: %w", err)
		}
		deps.Mongo = mongoClient
		cleanups = append(cleanups, func() {
			disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer disconnectCancel()
			mongoClient.Disconnect(disconnectCtx)
		})

		resultAdapter := mongodb.NewResultAdapter(mongoClient, cfg.MongoDBName)
		if err := resultAdapter.EnsureIndexes(ctx); err != nil {
			log.WithError(err).Warn("result index creation failed")
		}
		deps.ResultStore = resultAdapter
	}

	// Vector index backend
	index, err := newVectorIndex(ctx, cfg, deps, &cleanups)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.VectorIndex = index

	// Provider chains
	deps.LlmProvider = llm.NewProviderChain(cfg, log)
	deps.Embedder = llm.NewEmbeddingChain(cfg, log)

	// Classification services
	deps.Matcher = classification.NewMatcher(deps.Embedder, deps.VectorIndex, classification.MatcherConfig{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		WeightExact:         cfg.DomainWeightExact,
		WeightSimilar:       cfg.DomainWeightSimilar,
		WeightDefault:       cfg.DomainWeightDefault,
		CandidateCount:      cfg.MatchCandidateCount,
	}, log)

	deps.Chain = classification.NewChain(deps.LlmProvider, cfg.DPOMaxInputLength, log)

	// Scraper (needs the chain for LLM-assisted extraction)
	var scrapeCache *cache.RedisCache
	if deps.Redis != nil {
		scrapeCache = cache.NewRedisCache(deps.Redis)
	}
	httpClient := httputil.NewClient(&httputil.ClientConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ResponseTimeout:     time.Duration(cfg.ScrapeTimeoutSec) * time.Second,
		KeepAliveInterval:   30 * time.Second,
	})
	deps.Scraper = scraper.NewPrivacyScraper(httpClient, deps.Chain, scrapeCache, cfg.ScrapeCacheTTL, log)

	deps.Pipeline = classification.NewPipeline(classification.PipelineDeps{
		Normalizer: nlp.NewNormalizer(),
		Pii:        nlp.NewPii(cfg.PiiEntities),
		Metadata:   nlp.NewMetadata(cfg.FooterLineCount),
		Matcher:    deps.Matcher,
		Chain:      deps.Chain,
		Scraper:    deps.Scraper,
		Store:      deps.ResultStore,
		Audit:      deps.AuditStore,
	}, classification.PipelineConfig{
		MaxEmailLength:      cfg.MaxEmailLength,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, log)

	return deps, cleanup, nil
}

// newVectorIndex selects and initializes the configured backend. Anything
// unconfigured or unknown lands on the in-memory index.
func newVectorIndex(ctx context.Context, cfg *config.Config, deps *Dependencies, cleanups *[]func()) (out.VectorIndex, error) {
	switch cfg.VectorBackend {
	case "pgvector":
		if deps.Postgres == nil {
			return nil, fmt.Errorf("pgvector backend requires DATABASE_URL")
		}
		index := vector.NewPgVectorIndex(deps.Postgres, 1536, cfg.VectorEntryTTL)
		if err := index.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("pgvector schema: %w", err)
		}
		return index, nil

	case "neo4j":
		if cfg.Neo4jURL == "" {
			return nil, fmt.Errorf("neo4j backend requires NEO4J_URL")
		}
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL,
			neo4j.BasicAuth(cfg.Neo4jUsername, cfg.Neo4jPassword, ""))
		if err != nil {
			return nil, fmt.Errorf("neo4j driver: %w", err)
		}
		if err := driver.VerifyConnectivity(ctx); err != nil {
			return nil, fmt.Errorf("neo4j connectivity: %w", err)
		}
		deps.Neo4j = driver
		*cleanups = append(*cleanups, func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			driver.Close(closeCtx)
		})

		index := vector.NewNeo4jIndex(driver, cfg.Neo4jDatabase, 1536, cfg.VectorEntryTTL)
		if err := index.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("neo4j schema: %w", err)
		}
		return index, nil

	default:
		return vector.NewMemoryIndex(cfg.VectorEntryTTL), nil
	}
}
