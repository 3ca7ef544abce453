package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"triage_server/adapter/in/http"
	"triage_server/adapter/out/llm"
	"triage_server/adapter/out/mongodb"
	"triage_server/adapter/out/persistence"
	"triage_server/config"
	"triage_server/core/port/out"
	"triage_server/core/service/history"
	"triage_server/core/service/triage"
	"triage_server/infra/database"
	"triage_server/pkg/logger"
	"triage_server/pkg/metrics"
)

type Dependencies struct {
	Config  *config.Config
	SQLDB   *sqlx.DB
	Redis   *redis.Client
	MongoDB *mongo.Client

	HistoryRepo out.HistoryRepository
	Reasoner    *llm.Reasoner

	HistoryService *history.Service
	TriageService  *triage.Service

	ReadinessChecks []http.ReadinessCheck
}

// NewDependencies connects the configured history backend and wires services.
// The returned cleanup closes connections in reverse order.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	switch cfg.HistoryBackend {
	case config.BackendPostgres:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Driver = cfg.DBDriver
		pgCfg.MaxOpenConns = cfg.DBMaxOpenConns

		db, err := database.NewPostgres(ctx, cfg.DatabaseURL, pgCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		deps.SQLDB = db
		cleanups = append(cleanups, func() { db.Close() })
		metrics.RegisterPool("postgres", db.DB)

		repo := persistence.NewHistoryAdapter(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ensure history schema: %w", err)
		}
		deps.HistoryRepo = repo
		deps.ReadinessChecks = append(deps.ReadinessChecks, http.ReadinessCheck{Name: "postgres", Ping: db.PingContext})
		logger.Info("PostgreSQL history backend ready (driver=%s)", pgCfg.Driver)

	case config.BackendRedis:
		redisCfg := database.DefaultRedisConfig()
		redisCfg.PoolSize = cfg.RedisPoolSize

		client, err := database.NewRedis(ctx, cfg.RedisURL, redisCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.Redis = client
		cleanups = append(cleanups, func() { client.Close() })

		deps.HistoryRepo = persistence.NewRedisHistoryAdapter(client, cfg.HistoryRedisKey)
		deps.ReadinessChecks = append(deps.ReadinessChecks, http.ReadinessCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		logger.Info("Redis history backend ready (key=%s)", cfg.HistoryRedisKey)

	case config.BackendMongo:
		client, err := mongodb.NewClient(cfg.MongoDBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongodb: %w", err)
		}
		deps.MongoDB = client
		cleanups = append(cleanups, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		})

		repo := mongodb.NewHistoryAdapter(client.Database(cfg.MongoDBName))
		if err := repo.EnsureIndexes(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ensure history indexes: %w", err)
		}
		deps.HistoryRepo = repo
		deps.ReadinessChecks = append(deps.ReadinessChecks, http.ReadinessCheck{
			Name: "mongodb",
			Ping: func(ctx context.Context) error { return client.Ping(ctx, nil) },
		})
		logger.Info("MongoDB history backend ready (database=%s)", cfg.MongoDBName)

	default:
		deps.HistoryRepo = persistence.NewMemoryHistoryAdapter()
		logger.Info("In-memory history backend ready")
	}

	var reasoner out.Reasoner
	if cfg.LLMEnabled() {
		client := llm.NewClientWithConfig(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout(),
		})
		deps.Reasoner = llm.NewReasoner(client, cfg.LLMTimeout())
		reasoner = deps.Reasoner
		logger.Info("LLM reasoner enabled (model=%s)", client.Model())
	}

	deps.HistoryService = history.NewService(deps.HistoryRepo)
	deps.TriageService = triage.NewService(deps.HistoryService, reasoner, triage.Config{
		MaxMessageLength: cfg.MaxMessageLength,
	})

	return deps, cleanup, nil
}
