package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete gateway configuration
type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	Router        RouterConfig
	Health        HealthConfig
	Selector      SelectorConfig
	Cache         CacheConfig
	Ledger        LedgerConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ProvidersConfig holds upstream provider configurations.
// Declaration order here is the registry declaration order.
type ProvidersConfig struct {
	OpenAI     OpenAIConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	Enabled        bool
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	Models         []string
	CostPerKTokens float64
	Tags           []string
}

// OpenRouterConfig holds configuration for an OpenAI-compatible aggregator
type OpenRouterConfig struct {
	Enabled        bool
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	Models         []string
	CostPerKTokens float64
	Tags           []string
}

// OllamaConfig holds local (Ollama) provider configuration
type OllamaConfig struct {
	Enabled bool
	BaseURL string
	Timeout time.Duration
	Models  []string
	Tags    []string
}

// RouterConfig holds dispatch tunables
type RouterConfig struct {
	AttemptTimeout     time.Duration
	GlobalDeadline     time.Duration
	DefaultMaxAttempts int
	NonIdempotentTasks []string
}

// HealthConfig holds health tracking and circuit breaker tunables
type HealthConfig struct {
	WindowSize        int
	EMAAlpha          float64
	CircuitThreshold  int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffMax        time.Duration
}

// SelectorConfig holds ranking weights
type SelectorConfig struct {
	SuccessRateWeight  float64
	LatencyWeight      float64
	ZeroCostBonus      float64
	CostSensitiveTasks []string
}

// CacheConfig holds response cache configuration
type CacheConfig struct {
	Backend         string // memory or redis
	TTL             time.Duration
	Capacity        int
	CleanupInterval time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
}

// LedgerConfig holds optional usage ledger configuration.
// When DatabaseURL is empty the accountant runs purely in memory.
type LedgerConfig struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds admin endpoint authentication configuration
type AuthConfig struct {
	AdminJWTSecret string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 3*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				Enabled:        getEnvAsBool("OPENAI_ENABLED", true),
				APIKey:         getEnv("OPENAI_API_KEY", ""),
				BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
				Models:         getEnvAsSlice("OPENAI_MODELS", []string{"gpt-4o-mini", "gpt-4o"}),
				CostPerKTokens: getEnvAsFloat("OPENAI_COST_PER_K_TOKENS", 0.15),
				Tags:           getEnvAsSlice("OPENAI_TAGS", []string{"general", "code", "reasoning", "vision"}),
			},
			OpenRouter: OpenRouterConfig{
				Enabled:        getEnvAsBool("OPENROUTER_ENABLED", false),
				APIKey:         getEnv("OPENROUTER_API_KEY", ""),
				BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
				Timeout:        getEnvAsDuration("OPENROUTER_TIMEOUT", 90*time.Second),
				Models:         getEnvAsSlice("OPENROUTER_MODELS", []string{"anthropic/claude-3.5-sonnet"}),
				CostPerKTokens: getEnvAsFloat("OPENROUTER_COST_PER_K_TOKENS", 0.3),
				Tags:           getEnvAsSlice("OPENROUTER_TAGS", []string{"general", "reasoning", "docs"}),
			},
			Ollama: OllamaConfig{
				Enabled: getEnvAsBool("OLLAMA_ENABLED", true),
				BaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
				Timeout: getEnvAsDuration("OLLAMA_TIMEOUT", 2*time.Minute),
				Models:  getEnvAsSlice("OLLAMA_MODELS", []string{"codellama", "llama3"}),
				Tags:    getEnvAsSlice("OLLAMA_TAGS", []string{"general", "code", "offline"}),
			},
		},
		Router: RouterConfig{
			AttemptTimeout:     getEnvAsDuration("ROUTER_ATTEMPT_TIMEOUT", 30*time.Second),
			GlobalDeadline:     getEnvAsDuration("ROUTER_GLOBAL_DEADLINE", 2*time.Minute),
			DefaultMaxAttempts: getEnvAsInt("ROUTER_DEFAULT_MAX_ATTEMPTS", 0),
			NonIdempotentTasks: getEnvAsSlice("ROUTER_NON_IDEMPOTENT_TASKS", nil),
		},
		Health: HealthConfig{
			WindowSize:        getEnvAsInt("HEALTH_WINDOW_SIZE", 50),
			EMAAlpha:          getEnvAsFloat("HEALTH_EMA_ALPHA", 0.3),
			CircuitThreshold:  getEnvAsInt("HEALTH_CIRCUIT_THRESHOLD", 3),
			BackoffBase:       getEnvAsDuration("HEALTH_BACKOFF_BASE", 30*time.Second),
			BackoffMultiplier: getEnvAsFloat("HEALTH_BACKOFF_MULTIPLIER", 2.0),
			BackoffMax:        getEnvAsDuration("HEALTH_BACKOFF_MAX", 10*time.Minute),
		},
		Selector: SelectorConfig{
			SuccessRateWeight:  getEnvAsFloat("SELECTOR_SUCCESS_RATE_WEIGHT", 1.0),
			LatencyWeight:      getEnvAsFloat("SELECTOR_LATENCY_WEIGHT", 0.3),
			ZeroCostBonus:      getEnvAsFloat("SELECTOR_ZERO_COST_BONUS", 0.5),
			CostSensitiveTasks: getEnvAsSlice("SELECTOR_COST_SENSITIVE_TASKS", []string{"documentation"}),
		},
		Cache: CacheConfig{
			Backend:         getEnv("CACHE_BACKEND", "memory"),
			TTL:             getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			Capacity:        getEnvAsInt("CACHE_CAPACITY", 1024),
			CleanupInterval: getEnvAsDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
			RedisAddr:       getEnv("CACHE_REDIS_ADDR", "localhost:6379"),
			RedisPassword:   getEnv("CACHE_REDIS_PASSWORD", ""),
			RedisDB:         getEnvAsInt("CACHE_REDIS_DB", 0),
		},
		Ledger: LedgerConfig{
			DatabaseURL:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend %q: must be memory or redis", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("cache capacity must be positive")
	}

	if c.Health.EMAAlpha <= 0 || c.Health.EMAAlpha > 1 {
		return fmt.Errorf("health EMA alpha must be in (0, 1]")
	}
	if c.Health.CircuitThreshold <= 0 {
		return fmt.Errorf("circuit threshold must be positive")
	}
	if c.Health.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be >= 1")
	}

	if !c.Providers.OpenAI.Enabled && !c.Providers.OpenRouter.Enabled && !c.Providers.Ollama.Enabled {
		return fmt.Errorf("at least one provider must be enabled")
	}

	if c.IsProduction() {
		if c.Providers.OpenAI.Enabled && c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when OpenAI is enabled in production")
		}
		if c.Providers.OpenRouter.Enabled && c.Providers.OpenRouter.APIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required when OpenRouter is enabled in production")
		}
		if c.Auth.AdminJWTSecret == "" {
			return fmt.Errorf("ADMIN_JWT_SECRET is required in production")
		}
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns an environment variable as an integer or a default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvAsFloat returns an environment variable as a float or a default
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsBool returns an environment variable as a boolean or a default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsDuration returns an environment variable as a duration or a default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice returns a comma-separated environment variable as a slice
// or a default
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
