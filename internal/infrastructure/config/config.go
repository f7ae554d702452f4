package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Cookie      CookieConfig
	Log         LogConfig
	Event       EventConfig
	HTTP        HTTPConfig
	AI          AIConfig
	Storage     StorageConfig
	Stripe      StripeConfig
	Crawler     CrawlerConfig
	Engine      EngineConfig
	Ingestion   IngestionConfig
	Credentials CredentialsConfig
	Widget      WidgetConfig
	Scheduler   SchedulerConfig
	Swagger     SwaggerConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// DashboardURL is the public base URL of the tenant dashboard,
	// used to build conversation links pushed to CRM leads
	DashboardURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	WidgetTokenExpiration  time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// CookieConfig holds cookie settings for refresh token
type CookieConfig struct {
	Domain   string // Domain for cookies (empty = current domain)
	Path     string // Path for cookies
	Secure   bool   // Secure flag (should be true in production for HTTPS)
	SameSite string // SameSite policy: "strict", "lax", or "none"
}

// EventConfig holds event processing configuration
type EventConfig struct {
	ProcessorEnabled bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	MaxHeaderBytes          int
	MaxBodySize             int64
	UploadMaxBodySize       int64 // Larger cap for document upload routes
	RateLimitEnabled        bool
	RateLimitRequests       int
	RateLimitWindow         time.Duration
	AuthRateLimitEnabled    bool          // Enable stricter rate limiting for auth endpoints
	AuthRateLimitRequests   int           // Max auth attempts (default: 5)
	AuthRateLimitWindow     time.Duration // Auth rate limit window (default: 1 minute)
	WidgetRateLimitRequests int           // Per-visitor limit on public widget endpoints
	WidgetRateLimitWindow   time.Duration
	CORSAllowOrigins        []string
	CORSAllowMethods        []string
	CORSAllowHeaders        []string
	TrustedProxies          []string
}

// AIConfig holds platform-level model provider credentials.
// Tenants may override keys per provider; these are the defaults.
type AIConfig struct {
	RequestTimeout time.Duration
	OpenAI         OpenAIConfig
	Anthropic      AnthropicConfig
	Gemini         GeminiConfig
}

// OpenAIConfig holds OpenAI API settings
type OpenAIConfig struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel string
}

// AnthropicConfig holds Anthropic API settings
type AnthropicConfig struct {
	APIKey  string
	BaseURL string
	Version string // anthropic-version header value
}

// GeminiConfig holds Google Gemini API settings
type GeminiConfig struct {
	APIKey         string
	EmbeddingModel string
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	PresignExpiration time.Duration
}

// StripeConfig holds Stripe billing settings
type StripeConfig struct {
	SecretKey              string
	PublishableKey         string
	WebhookSecret          string
	IsTestMode             bool
	DefaultCurrency        string
	PriceIDs               map[string]string // plan name -> Stripe price ID
	SuccessURL             string
	CancelURL              string
	BillingPortalReturnURL string
}

// CrawlerConfig holds settings for the headless page crawler used by
// URL document sources
type CrawlerConfig struct {
	Enabled     bool
	Timeout     time.Duration
	UserAgent   string
	MaxBodySize int64
}

// EngineConfig tunes the conversation reply pipeline
type EngineConfig struct {
	HistoryWindow   int           // Past messages sent to the provider
	IdleWindow      time.Duration // Resume window for visitor conversations
	HistoryCacheTTL time.Duration // Redis history cache expiry
	EmbedFallback   string        // Provider used for embeddings when the bot's has none
}

// IngestionConfig tunes the async document ingestion worker
type IngestionConfig struct {
	Enabled        bool
	PollInterval   time.Duration
	BatchSize      int
	EmbedBatchSize int
}

// CredentialsConfig holds the key for sealing channel and integration
// credentials at rest
type CredentialsConfig struct {
	// EncryptionKey is hex-encoded, 32 bytes once decoded (AES-256-GCM)
	EncryptionKey string
}

// WidgetConfig holds public widget surface settings
type WidgetConfig struct {
	// AllowedOrigins for widget CORS; empty means any origin, the widget
	// is embedded on customer sites the platform cannot enumerate
	AllowedOrigins []string
	SessionTTL     time.Duration
}

// SchedulerConfig holds background job scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	TrialSweepCron    string // When to check for expired trials
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require authentication to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only, disable in prod for security)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings (default: 200ms)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with CHATFORGE_ prefix (e.g., CHATFORGE_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("CHATFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name:         v.GetString("app.name"),
			Env:          v.GetString("app.env"),
			Port:         v.GetString("app.port"),
			DashboardURL: v.GetString("app.dashboard_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			WidgetTokenExpiration:  v.GetDuration("jwt.widget_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Cookie: CookieConfig{
			Domain:   v.GetString("cookie.domain"),
			Path:     v.GetString("cookie.path"),
			Secure:   v.GetBool("cookie.secure"),
			SameSite: v.GetString("cookie.same_site"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			ProcessorEnabled: v.GetBool("event.processor_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:             v.GetDuration("http.read_timeout"),
			WriteTimeout:            v.GetDuration("http.write_timeout"),
			IdleTimeout:             v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:          v.GetInt("http.max_header_bytes"),
			MaxBodySize:             v.GetInt64("http.max_body_size"),
			UploadMaxBodySize:       v.GetInt64("http.upload_max_body_size"),
			RateLimitEnabled:        v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:       v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:         v.GetDuration("http.rate_limit_window"),
			AuthRateLimitEnabled:    v.GetBool("http.auth_rate_limit_enabled"),
			AuthRateLimitRequests:   v.GetInt("http.auth_rate_limit_requests"),
			AuthRateLimitWindow:     v.GetDuration("http.auth_rate_limit_window"),
			WidgetRateLimitRequests: v.GetInt("http.widget_rate_limit_requests"),
			WidgetRateLimitWindow:   v.GetDuration("http.widget_rate_limit_window"),
			CORSAllowOrigins:        v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:        v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:        v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:          v.GetStringSlice("http.trusted_proxies"),
		},
		AI: AIConfig{
			RequestTimeout: v.GetDuration("ai.request_timeout"),
			OpenAI: OpenAIConfig{
				APIKey:         v.GetString("ai.openai.api_key"),
				BaseURL:        v.GetString("ai.openai.base_url"),
				EmbeddingModel: v.GetString("ai.openai.embedding_model"),
			},
			Anthropic: AnthropicConfig{
				APIKey:  v.GetString("ai.anthropic.api_key"),
				BaseURL: v.GetString("ai.anthropic.base_url"),
				Version: v.GetString("ai.anthropic.version"),
			},
			Gemini: GeminiConfig{
				APIKey:         v.GetString("ai.gemini.api_key"),
				EmbeddingModel: v.GetString("ai.gemini.embedding_model"),
			},
		},
		Storage: StorageConfig{
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
		},
		Stripe: StripeConfig{
			SecretKey:              v.GetString("stripe.secret_key"),
			PublishableKey:         v.GetString("stripe.publishable_key"),
			WebhookSecret:          v.GetString("stripe.webhook_secret"),
			IsTestMode:             v.GetBool("stripe.is_test_mode"),
			DefaultCurrency:        v.GetString("stripe.default_currency"),
			PriceIDs:               v.GetStringMapString("stripe.price_ids"),
			SuccessURL:             v.GetString("stripe.success_url"),
			CancelURL:              v.GetString("stripe.cancel_url"),
			BillingPortalReturnURL: v.GetString("stripe.billing_portal_return_url"),
		},
		Crawler: CrawlerConfig{
			Enabled:     v.GetBool("crawler.enabled"),
			Timeout:     v.GetDuration("crawler.timeout"),
			UserAgent:   v.GetString("crawler.user_agent"),
			MaxBodySize: v.GetInt64("crawler.max_body_size"),
		},
		Engine: EngineConfig{
			HistoryWindow:   v.GetInt("engine.history_window"),
			IdleWindow:      v.GetDuration("engine.idle_window"),
			HistoryCacheTTL: v.GetDuration("engine.history_cache_ttl"),
			EmbedFallback:   v.GetString("engine.embed_fallback"),
		},
		Ingestion: IngestionConfig{
			Enabled:        v.GetBool("ingestion.enabled"),
			PollInterval:   v.GetDuration("ingestion.poll_interval"),
			BatchSize:      v.GetInt("ingestion.batch_size"),
			EmbedBatchSize: v.GetInt("ingestion.embed_batch_size"),
		},
		Credentials: CredentialsConfig{
			EncryptionKey: v.GetString("credentials.encryption_key"),
		},
		Widget: WidgetConfig{
			AllowedOrigins: v.GetStringSlice("widget.allowed_origins"),
			SessionTTL:     v.GetDuration("widget.session_ttl"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			TrialSweepCron:    v.GetString("scheduler.trial_sweep_cron"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			RetryAttempts:     v.GetInt("scheduler.retry_attempts"),
			RetryDelay:        v.GetDuration("scheduler.retry_delay"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "chatforge-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.DashboardURL == "" {
		cfg.App.DashboardURL = "http://localhost:3000"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "chatforge"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.WidgetTokenExpiration == 0 {
		cfg.JWT.WidgetTokenExpiration = time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "chatforge-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	// Cookie defaults
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == "" {
		cfg.Cookie.SameSite = "lax"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 5 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 168 * time.Hour
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 5 << 20 // 5MB
	}
	if cfg.HTTP.UploadMaxBodySize == 0 {
		cfg.HTTP.UploadMaxBodySize = 12 << 20 // 12MB, fits a 10MB document plus multipart framing
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// Auth rate limiting defaults - stricter limits for auth endpoints to prevent brute force
	if cfg.HTTP.AuthRateLimitRequests == 0 {
		cfg.HTTP.AuthRateLimitRequests = 5 // 5 attempts per window
	}
	if cfg.HTTP.AuthRateLimitWindow == 0 {
		cfg.HTTP.AuthRateLimitWindow = time.Minute // 1 minute window
	}
	if cfg.HTTP.WidgetRateLimitRequests == 0 {
		cfg.HTTP.WidgetRateLimitRequests = 30 // per visitor per window
	}
	if cfg.HTTP.WidgetRateLimitWindow == 0 {
		cfg.HTTP.WidgetRateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	// This applies to the dashboard API only; the widget group configures its own
	// CORS policy since it is embedded on arbitrary customer sites.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	// AI defaults
	if cfg.AI.RequestTimeout == 0 {
		cfg.AI.RequestTimeout = 60 * time.Second
	}
	if cfg.AI.OpenAI.BaseURL == "" {
		cfg.AI.OpenAI.BaseURL = "https://api.openai.com"
	}
	if cfg.AI.OpenAI.EmbeddingModel == "" {
		cfg.AI.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.Anthropic.BaseURL == "" {
		cfg.AI.Anthropic.BaseURL = "https://api.anthropic.com"
	}
	if cfg.AI.Anthropic.Version == "" {
		cfg.AI.Anthropic.Version = "2023-06-01"
	}
	if cfg.AI.Gemini.EmbeddingModel == "" {
		cfg.AI.Gemini.EmbeddingModel = "text-embedding-004"
	}
	// Storage defaults
	if cfg.Storage.Endpoint == "" {
		cfg.Storage.Endpoint = "localhost:9000"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "chatforge-documents"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	// Stripe defaults
	if cfg.Stripe.DefaultCurrency == "" {
		cfg.Stripe.DefaultCurrency = "usd"
	}
	// Crawler defaults
	if cfg.Crawler.Timeout == 0 {
		cfg.Crawler.Timeout = 30 * time.Second
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = "ChatForgeBot/1.0 (+https://chatforge.dev/bot)"
	}
	if cfg.Crawler.MaxBodySize == 0 {
		cfg.Crawler.MaxBodySize = 2 << 20 // 2MB of extracted text is plenty
	}
	// Engine defaults
	if cfg.Engine.HistoryWindow == 0 {
		cfg.Engine.HistoryWindow = 12
	}
	if cfg.Engine.IdleWindow == 0 {
		cfg.Engine.IdleWindow = 24 * time.Hour
	}
	if cfg.Engine.HistoryCacheTTL == 0 {
		cfg.Engine.HistoryCacheTTL = 30 * time.Minute
	}
	if cfg.Engine.EmbedFallback == "" {
		cfg.Engine.EmbedFallback = "openai"
	}
	// Ingestion defaults
	if cfg.Ingestion.PollInterval == 0 {
		cfg.Ingestion.PollInterval = 10 * time.Second
	}
	if cfg.Ingestion.BatchSize == 0 {
		cfg.Ingestion.BatchSize = 5
	}
	if cfg.Ingestion.EmbedBatchSize == 0 {
		cfg.Ingestion.EmbedBatchSize = 64
	}
	// Widget defaults
	if cfg.Widget.SessionTTL == 0 {
		cfg.Widget.SessionTTL = time.Hour
	}
	if cfg.Scheduler.TrialSweepCron == "" {
		cfg.Scheduler.TrialSweepCron = "0 2 * * *"
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 3
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Scheduler.RetryAttempts == 0 {
		cfg.Scheduler.RetryAttempts = 3
	}
	if cfg.Scheduler.RetryDelay == 0 {
		cfg.Scheduler.RetryDelay = 5 * time.Minute
	}
	// Swagger defaults: enabled by default (will be overridden by validation in production)
	// Note: We set enabled=true here, but production validation enforces proper configuration

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "chatforge-backend"
	}
	// Note: Insecure defaults to false for safety (TLS enabled by default)
	// Database tracing defaults - enabled by default when telemetry is enabled
	// DBTraceEnabled defaults to false (needs explicit enable)
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	// Note: DBLogFullSQL defaults to false for security (disable in production)
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Credentials.EncryptionKey == "" {
			return fmt.Errorf("credentials.encryption_key is required in production (channel and integration credentials are sealed at rest)")
		}
		// Cookie security for refresh token
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production (HTTPS required for secure cookies)")
		}
		// SameSite=None requires Secure flag
		if c.Cookie.SameSite == "none" && !c.Cookie.Secure {
			return fmt.Errorf("cookie.same_site=none requires cookie.secure=true")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		// Swagger must be disabled OR protected in production
		if c.Swagger.Enabled {
			if !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
				return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
			}
		}
		// Database tracing: full SQL logging is a security risk in production
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
