package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MissyMedina/autodev-gateway/config"
	"github.com/MissyMedina/autodev-gateway/services/cache"
	"github.com/MissyMedina/autodev-gateway/services/cost"
	"github.com/MissyMedina/autodev-gateway/services/dispatch"
	"github.com/MissyMedina/autodev-gateway/services/health"
	"github.com/MissyMedina/autodev-gateway/services/providers"
	"github.com/MissyMedina/autodev-gateway/services/providers/local"
	"github.com/MissyMedina/autodev-gateway/services/providers/openai"
	"github.com/MissyMedina/autodev-gateway/services/routing"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *sql.DB

	// Core services
	Registry   *providers.Registry
	Tracker    *health.Tracker
	Cache      cache.ResponseCache
	Selector   *routing.Selector
	Accountant *cost.Accountant
	Ledger     *cost.Ledger
	Dispatcher *dispatch.Dispatcher

	redisClient *redis.Client
	cacheStop   chan struct{}
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	deps.initTracker(cfg)

	if err := deps.initCache(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	if err := deps.initCost(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize cost tracking: %w", err)
	}

	deps.initDispatch(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Int("providers", deps.Registry.Len()),
		zap.String("cache_backend", cfg.Cache.Backend))
	return deps, nil
}

// initProviders registers every enabled provider with its transport adapter.
// Registration order here fixes the declaration order used as the ranking
// tie-break.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	if cfg.Providers.OpenAI.Enabled {
		adapter := openai.New(openai.Config{
			APIKey:  cfg.Providers.OpenAI.APIKey,
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			Timeout: cfg.Providers.OpenAI.Timeout,
		})
		desc := &providers.Descriptor{
			ID:              "openai",
			Endpoint:        cfg.Providers.OpenAI.BaseURL,
			AuthRef:         "OPENAI_API_KEY",
			SupportedModels: cfg.Providers.OpenAI.Models,
			CostPerKTokens:  cfg.Providers.OpenAI.CostPerKTokens,
			CapabilityTags:  cfg.Providers.OpenAI.Tags,
			Enabled:         true,
		}
		if err := registry.Register(desc, adapter); err != nil {
			return err
		}
		d.Logger.Info("registered OpenAI provider")
	}

	if cfg.Providers.OpenRouter.Enabled {
		adapter := openai.New(openai.Config{
			Name:    "openrouter",
			APIKey:  cfg.Providers.OpenRouter.APIKey,
			BaseURL: cfg.Providers.OpenRouter.BaseURL,
			Timeout: cfg.Providers.OpenRouter.Timeout,
		})
		desc := &providers.Descriptor{
			ID:              "openrouter",
			Endpoint:        cfg.Providers.OpenRouter.BaseURL,
			AuthRef:         "OPENROUTER_API_KEY",
			SupportedModels: cfg.Providers.OpenRouter.Models,
			CostPerKTokens:  cfg.Providers.OpenRouter.CostPerKTokens,
			CapabilityTags:  cfg.Providers.OpenRouter.Tags,
			Enabled:         true,
		}
		if err := registry.Register(desc, adapter); err != nil {
			return err
		}
		d.Logger.Info("registered OpenRouter provider")
	}

	if cfg.Providers.Ollama.Enabled {
		adapter := local.New(local.Config{
			BaseURL: cfg.Providers.Ollama.BaseURL,
			Timeout: cfg.Providers.Ollama.Timeout,
		})
		desc := &providers.Descriptor{
			ID:              "ollama",
			Endpoint:        cfg.Providers.Ollama.BaseURL,
			SupportedModels: cfg.Providers.Ollama.Models,
			CostPerKTokens:  0,
			CapabilityTags:  cfg.Providers.Ollama.Tags,
			Enabled:         true,
		}
		if err := registry.Register(desc, adapter); err != nil {
			return err
		}
		d.Logger.Info("registered Ollama provider")
	}

	if registry.Len() == 0 {
		return fmt.Errorf("no providers enabled")
	}

	d.Registry = registry
	return nil
}

// initTracker initializes health tracking and the selector over it
func (d *Dependencies) initTracker(cfg *config.Config) {
	d.Tracker = health.NewTracker(health.Config{
		WindowSize:        cfg.Health.WindowSize,
		EMAAlpha:          cfg.Health.EMAAlpha,
		CircuitThreshold:  cfg.Health.CircuitThreshold,
		BackoffBase:       cfg.Health.BackoffBase,
		BackoffMultiplier: cfg.Health.BackoffMultiplier,
		BackoffMax:        cfg.Health.BackoffMax,
	})

	d.Selector = routing.NewSelector(d.Registry, routing.Config{
		Weights: routing.Weights{
			SuccessRate:   cfg.Selector.SuccessRateWeight,
			Latency:       cfg.Selector.LatencyWeight,
			ZeroCostBonus: cfg.Selector.ZeroCostBonus,
		},
		CostSensitiveTasks: toTaskTypes(cfg.Selector.CostSensitiveTasks),
	})
}

// initCache selects the cache backend and starts the cleanup worker for the
// in-memory store
func (d *Dependencies) initCache(ctx context.Context, cfg *config.Config) error {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		d.redisClient = client
		d.Cache = cache.NewRedisCache(client, d.Logger)
		d.Logger.Info("redis cache connected", zap.String("addr", cfg.Cache.RedisAddr))

	default:
		memCache := cache.NewMemoryCache(cfg.Cache.Capacity)
		if cfg.Cache.CleanupInterval > 0 {
			d.cacheStop = make(chan struct{})
			go memCache.StartCleanupWorker(cfg.Cache.CleanupInterval, d.cacheStop)
		}
		d.Cache = memCache
	}
	return nil
}

// initCost wires the in-memory accountant and, when a database is
// configured, the durable usage ledger
func (d *Dependencies) initCost(ctx context.Context, cfg *config.Config) error {
	d.Accountant = cost.NewAccountant(d.Registry)

	if cfg.Ledger.DatabaseURL == "" {
		d.Logger.Info("no database configured, usage ledger disabled")
		return nil
	}

	db, err := sql.Open("postgres", cfg.Ledger.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Ledger.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Ledger.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Ledger.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	ledger := cost.NewLedger(db, d.Logger)
	if err := ledger.InitSchema(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	d.DB = db
	d.Ledger = ledger
	d.Logger.Info("usage ledger initialized")
	return nil
}

// initDispatch builds the dispatcher on top of everything else
func (d *Dependencies) initDispatch(cfg *config.Config) {
	d.Dispatcher = dispatch.NewDispatcher(
		d.Registry,
		d.Selector,
		d.Tracker,
		d.Cache,
		d.Accountant,
		d.Ledger,
		dispatch.Config{
			AttemptTimeout:     cfg.Router.AttemptTimeout,
			GlobalDeadline:     cfg.Router.GlobalDeadline,
			DefaultMaxAttempts: cfg.Router.DefaultMaxAttempts,
			CacheTTL:           cfg.Cache.TTL,
			NonIdempotentTasks: toTaskTypes(cfg.Router.NonIdempotentTasks),
		},
		d.Logger,
	)
}

// Close releases all held resources
func (d *Dependencies) Close() error {
	if d.cacheStop != nil {
		close(d.cacheStop)
	}

	var firstErr error
	if d.redisClient != nil {
		if err := d.redisClient.Close(); err != nil {
			firstErr = err
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func toTaskTypes(names []string) []providers.TaskType {
	if len(names) == 0 {
		return nil
	}
	out := make([]providers.TaskType, 0, len(names))
	for _, n := range names {
		out = append(out, providers.TaskType(n))
	}
	return out
}
