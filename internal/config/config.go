// Package config loads the service configuration from environment variables
// and validates it on startup so a misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`

	// ReadTimeout bounds reading the whole request, upload included.
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5m"`

	// WriteTimeout must cover the ingestion itself; 0 disables it.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"0s"`

	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. DB_URL is accepted as a fallback.
	URL string `env:"DATABASE_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" envDefault:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" envDefault:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// UploadConfig holds CSV ingestion settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted request body in bytes (default: 100MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" envDefault:"104857600"`

	// MaxMemory is how much of a multipart form is kept in memory before
	// spilling to a temp file (default: 10MB).
	MaxMemory int64 `env:"UPLOAD_MAX_MEMORY" envDefault:"10485760"`

	// MaxConcurrent is the number of ingestions allowed at once.
	MaxConcurrent int           `env:"UPLOAD_MAX_CONCURRENT" envDefault:"5"`
	MaxWaitTime   time.Duration `env:"UPLOAD_MAX_WAIT_TIME" envDefault:"30s"`

	BatchSize int `env:"UPLOAD_BATCH_SIZE" envDefault:"1000"`

	// Workers is the number of batches of one upload processed concurrently.
	Workers int `env:"UPLOAD_WORKERS" envDefault:"1"`

	BatchTimeout time.Duration `env:"UPLOAD_BATCH_TIMEOUT" envDefault:"30s"`
	Timeout      time.Duration `env:"UPLOAD_TIMEOUT" envDefault:"10m"`

	// InsertPolicy is "batch" (a failed bulk insert fails every row) or
	// "per-row" (retry rows one by one).
	InsertPolicy string `env:"UPLOAD_INSERT_POLICY" envDefault:"batch"`
}

// RateLimitConfig holds request throttling settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`

	// UploadLimit is upload requests per minute per client IP.
	UploadLimit int64 `env:"RATE_LIMIT_UPLOAD" envDefault:"10"`

	Storage  string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL string `env:"RATE_LIMIT_REDIS_URL"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists proxy CIDRs whose X-Real-IP / X-Forwarded-For
	// headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// UserHeader carries the authenticated caller id set by the gateway.
	UserHeader string `env:"AUTH_USER_HEADER" envDefault:"X-User-ID"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
