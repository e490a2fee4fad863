// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	API      APIConfig
	Import   ImportConfig
	Upload   UploadConfig
	Session  SessionConfig
	Database DatabaseConfig
	History  HistoryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout must outlast a full single-request upload (default: 6m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"6m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// APIConfig describes the remote marketplace API that receives products.
type APIConfig struct {
	// BaseURL is the marketplace API root, e.g. https://api.example.com/api
	BaseURL string `env:"IMPORT_API_URL" envAlt:"API_URL" default:"http://localhost:5000/api"`

	// BulkPath is the bulk-create endpoint relative to BaseURL
	BulkPath string `env:"IMPORT_API_BULK_PATH" default:"/products/bulk-upload"`

	// CurrentUserPath returns the authenticated seller
	CurrentUserPath string `env:"IMPORT_API_ME_PATH" default:"/auth/me"`

	// Token is a bearer token used by the CLI; the server forwards the caller's token instead
	Token string `env:"IMPORT_API_TOKEN"`

	// RequestTimeout bounds every non-upload request (default: 30s)
	RequestTimeout time.Duration `env:"IMPORT_API_TIMEOUT" default:"30s"`
}

// ImportConfig holds CSV parsing and validation settings.
type ImportConfig struct {
	// CDNHost is the image host accepted without an explicit scheme
	CDNHost string `env:"IMPORT_CDN_HOST" default:"res.cloudinary.com"`

	// PlaceholderPatterns are URL fragments of stock/dummy images that are rejected
	PlaceholderPatterns []string `env:"IMPORT_PLACEHOLDER_PATTERNS" default:"placeholder.com,placehold.it,placehold.co,dummyimage.com,placekitten.com,fakeimg.pl,picsum.photos"`
}

// UploadConfig holds bulk submission settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// BatchThreshold is the valid-row count above which uploads are batched (default: 100)
	BatchThreshold int `env:"UPLOAD_BATCH_THRESHOLD" default:"100"`

	// BatchSize is the number of products per batch request (default: 50)
	BatchSize int `env:"UPLOAD_BATCH_SIZE" default:"50"`

	// SingleTimeout bounds the non-batched request (default: 5m)
	SingleTimeout time.Duration `env:"UPLOAD_SINGLE_TIMEOUT" default:"5m"`

	// BatchTimeout bounds each batch request (default: 2m)
	BatchTimeout time.Duration `env:"UPLOAD_BATCH_TIMEOUT" default:"2m"`

	// BatchesPerMinute paces batch requests; 0 disables pacing
	BatchesPerMinute int `env:"UPLOAD_BATCHES_PER_MINUTE" default:"0"`

	// MaxConcurrent is the maximum number of uploads submitting at once (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SessionConfig controls upload session lifetime.
type SessionConfig struct {
	// TTL is how long an untouched session is kept (default: 1h)
	TTL time.Duration `env:"SESSION_TTL" default:"1h"`

	// SweepInterval is how often expired sessions are discarded (default: 5m)
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// DatabaseConfig holds database connection settings.
// When URL is empty upload history is kept in memory.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// HistoryConfig holds upload history settings.
type HistoryConfig struct {
	// RetentionDays is how long history entries are kept (default: 90)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`

	// ListLimit caps entries returned per listing (default: 50)
	ListLimit int `env:"HISTORY_LIST_LIMIT" default:"50"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for submit endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// HistoryRetention returns the retention window as a duration.
func (c *HistoryConfig) HistoryRetention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
