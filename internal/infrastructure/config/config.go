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
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Sync       SyncConfig
	Resilience ResilienceConfig
	Vault      VaultConfig
	Webhook    WebhookConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
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

// JWTConfig holds JWT settings for the admin API
type JWTConfig struct {
	Secret                string
	AccessTokenExpiration time.Duration
	Issuer                string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// SyncConfig holds sync orchestrator configuration
type SyncConfig struct {
	GlobalConcurrency    int           // Max in-flight remote calls across all integrations
	PerTargetConcurrency int           // Max in-flight remote calls per integration
	JobQueueSize         int           // Pending job buffer before submission blocks
	JobHistorySize       int           // Completed jobs kept in memory for status queries
	PageSize             int           // Pull page size for order/product listings
	OrderWindow          time.Duration // Lookback window for order pulls
}

// ResilienceConfig holds circuit breaker, retry, and rate limit settings
type ResilienceConfig struct {
	BreakerThreshold    int           // Consecutive failures before the circuit opens
	BreakerProbeDelay   time.Duration // Initial wait before the first half-open probe
	BreakerMaxDelay     time.Duration // Cap on the probe backoff
	RetryMaxAttempts    int           // Attempts per call including the first
	RetryBaseDelay      time.Duration // Initial retry backoff
	RetryMaxDelay       time.Duration // Cap on the retry backoff
	RateLimitPerSecond  float64       // Token refill rate per integration
	RateLimitBurst      int           // Token bucket capacity per integration
	AcquireTimeout      time.Duration // Max wait for a rate limit token
	PersistenceInterval time.Duration // How often breaker snapshots are flushed
}

// VaultConfig holds credential encryption settings
type VaultConfig struct {
	MasterKey string // 32-byte key, hex or base64 encoded
}

// WebhookConfig holds webhook ingestion settings
type WebhookConfig struct {
	DedupTTL      time.Duration // Idempotency key retention in the fast dedup store
	SweepInterval time.Duration // How often unprocessed events are re-dispatched
	SweepAge      time.Duration // Minimum age before an unprocessed event is swept
	SweepBatch    int           // Max events per sweep pass
	MaxBodySize   int64         // Max accepted webhook payload
}

// SchedulerConfig holds unattended sync scheduling settings
type SchedulerConfig struct {
	Enabled           bool          // Whether periodic sync runs are submitted
	DeltaInterval     time.Duration // How often changed catalog data is pushed
	OrderPullInterval time.Duration // How often recent orders are pulled
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PAZARSYNC_ prefix (e.g., PAZARSYNC_DATABASE_PASSWORD)
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
	v.SetEnvPrefix("PAZARSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
			Secret:                v.GetString("jwt.secret"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
			Issuer:                v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			GlobalConcurrency:    v.GetInt("sync.global_concurrency"),
			PerTargetConcurrency: v.GetInt("sync.per_target_concurrency"),
			JobQueueSize:         v.GetInt("sync.job_queue_size"),
			JobHistorySize:       v.GetInt("sync.job_history_size"),
			PageSize:             v.GetInt("sync.page_size"),
			OrderWindow:          v.GetDuration("sync.order_window"),
		},
		Resilience: ResilienceConfig{
			BreakerThreshold:    v.GetInt("resilience.breaker_threshold"),
			BreakerProbeDelay:   v.GetDuration("resilience.breaker_probe_delay"),
			BreakerMaxDelay:     v.GetDuration("resilience.breaker_max_delay"),
			RetryMaxAttempts:    v.GetInt("resilience.retry_max_attempts"),
			RetryBaseDelay:      v.GetDuration("resilience.retry_base_delay"),
			RetryMaxDelay:       v.GetDuration("resilience.retry_max_delay"),
			RateLimitPerSecond:  v.GetFloat64("resilience.rate_limit_per_second"),
			RateLimitBurst:      v.GetInt("resilience.rate_limit_burst"),
			AcquireTimeout:      v.GetDuration("resilience.acquire_timeout"),
			PersistenceInterval: v.GetDuration("resilience.persistence_interval"),
		},
		Vault: VaultConfig{
			MasterKey: v.GetString("vault.master_key"),
		},
		Webhook: WebhookConfig{
			DedupTTL:      v.GetDuration("webhook.dedup_ttl"),
			SweepInterval: v.GetDuration("webhook.sweep_interval"),
			SweepAge:      v.GetDuration("webhook.sweep_age"),
			SweepBatch:    v.GetInt("webhook.sweep_batch"),
			MaxBodySize:   v.GetInt64("webhook.max_body_size"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			DeltaInterval:     v.GetDuration("scheduler.delta_interval"),
			OrderPullInterval: v.GetDuration("scheduler.order_pull_interval"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
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
		cfg.App.Name = "pazarsync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "pazarsync"
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
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "pazarsync-backend"
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
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Sync.GlobalConcurrency == 0 {
		cfg.Sync.GlobalConcurrency = 16
	}
	if cfg.Sync.PerTargetConcurrency == 0 {
		cfg.Sync.PerTargetConcurrency = 4
	}
	if cfg.Sync.JobQueueSize == 0 {
		cfg.Sync.JobQueueSize = 64
	}
	if cfg.Sync.JobHistorySize == 0 {
		cfg.Sync.JobHistorySize = 256
	}
	if cfg.Sync.PageSize == 0 {
		cfg.Sync.PageSize = 100
	}
	if cfg.Sync.OrderWindow == 0 {
		cfg.Sync.OrderWindow = 24 * time.Hour
	}
	if cfg.Resilience.BreakerThreshold == 0 {
		cfg.Resilience.BreakerThreshold = 5
	}
	if cfg.Resilience.BreakerProbeDelay == 0 {
		cfg.Resilience.BreakerProbeDelay = 30 * time.Second
	}
	if cfg.Resilience.BreakerMaxDelay == 0 {
		cfg.Resilience.BreakerMaxDelay = 10 * time.Minute
	}
	if cfg.Resilience.RetryMaxAttempts == 0 {
		cfg.Resilience.RetryMaxAttempts = 3
	}
	if cfg.Resilience.RetryBaseDelay == 0 {
		cfg.Resilience.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.Resilience.RetryMaxDelay == 0 {
		cfg.Resilience.RetryMaxDelay = 15 * time.Second
	}
	if cfg.Resilience.RateLimitPerSecond == 0 {
		cfg.Resilience.RateLimitPerSecond = 10
	}
	if cfg.Resilience.RateLimitBurst == 0 {
		cfg.Resilience.RateLimitBurst = 20
	}
	if cfg.Resilience.AcquireTimeout == 0 {
		cfg.Resilience.AcquireTimeout = 30 * time.Second
	}
	if cfg.Resilience.PersistenceInterval == 0 {
		cfg.Resilience.PersistenceInterval = 15 * time.Second
	}
	if cfg.Webhook.DedupTTL == 0 {
		cfg.Webhook.DedupTTL = 72 * time.Hour
	}
	if cfg.Webhook.SweepInterval == 0 {
		cfg.Webhook.SweepInterval = time.Minute
	}
	if cfg.Webhook.SweepAge == 0 {
		cfg.Webhook.SweepAge = 2 * time.Minute
	}
	if cfg.Webhook.SweepBatch == 0 {
		cfg.Webhook.SweepBatch = 100
	}
	if cfg.Webhook.MaxBodySize == 0 {
		cfg.Webhook.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.Scheduler.DeltaInterval == 0 {
		cfg.Scheduler.DeltaInterval = 15 * time.Minute
	}
	if cfg.Scheduler.OrderPullInterval == 0 {
		cfg.Scheduler.OrderPullInterval = 10 * time.Minute
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0 // 100% in development
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "pazarsync-backend"
	}
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

	if c.Sync.PerTargetConcurrency > c.Sync.GlobalConcurrency {
		return fmt.Errorf("sync.per_target_concurrency (%d) cannot exceed sync.global_concurrency (%d)",
			c.Sync.PerTargetConcurrency, c.Sync.GlobalConcurrency)
	}
	if c.Resilience.RetryMaxAttempts < 1 {
		return fmt.Errorf("resilience.retry_max_attempts must be at least 1")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Vault.MasterKey == "" {
			return fmt.Errorf("vault.master_key is required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
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
