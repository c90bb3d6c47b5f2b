// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// Catalog backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Pipeline PipelineConfig
	Session  SessionConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Gallery  GalleryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, in-flight runs included (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds CSV upload settings.
type UploadConfig struct {
	// MaxFileSize accepts human readable sizes such as "100MB" (default: 100MB)
	MaxFileSize ByteSize `env:"UPLOAD_MAX_FILE_SIZE" default:"100MB"`

	// Delimiter is the CSV field separator (default: ",")
	Delimiter string `env:"UPLOAD_DELIMITER" default:","`
}

// PipelineConfig holds transform unit settings.
type PipelineConfig struct {
	// ScriptsDir is the directory scanned for unit manifests (default: Scripts)
	ScriptsDir string `env:"PIPELINE_SCRIPTS_DIR" envAlt:"SCRIPTS_DIR" default:"Scripts"`

	// Watch reloads units when ScriptsDir changes (default: true)
	Watch bool `env:"PIPELINE_WATCH" default:"true"`

	// MaxConcurrent is the maximum number of parallel runs (default: 5)
	MaxConcurrent int `env:"PIPELINE_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"PIPELINE_MAX_WAIT_TIME" default:"30s"`

	// PreviewRows is how many rows the page previews show (default: 1000)
	PreviewRows int `env:"PIPELINE_PREVIEW_ROWS" default:"1000"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	TTL           time.Duration `env:"SESSION_TTL" default:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"10m"`
	CookieName    string        `env:"SESSION_COOKIE_NAME" default:"countonsheep_session"`

	// CookieSecure sets the Secure flag; enable behind HTTPS (default: false)
	CookieSecure bool `env:"SESSION_COOKIE_SECURE" default:"false"`
}

// CatalogConfig selects where the explorer and tool catalogs are stored.
type CatalogConfig struct {
	// Backend is one of file, postgres, sqlite (default: file)
	Backend string `env:"CATALOG_BACKEND" default:"file"`

	// ExplorersFile and ToolsFile are used by the file backend.
	// A .yaml or .yml extension switches the encoding to YAML.
	ExplorersFile string `env:"CATALOG_EXPLORERS_FILE" default:"block_explorers.json"`
	ToolsFile     string `env:"CATALOG_TOOLS_FILE" default:"tools.json"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `env:"CATALOG_SQLITE_PATH" default:"catalog.db"`
}

// DatabaseConfig holds PostgreSQL settings for the postgres catalog backend.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, required for the postgres backend.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// GalleryConfig holds template gallery settings.
type GalleryConfig struct {
	// Dir is the directory of downloadable templates (default: Templates)
	Dir string `env:"GALLERY_DIR" default:"Templates"`

	// Extensions is a comma-separated list of listed file extensions (default: .csv)
	Extensions []string `env:"GALLERY_EXTENSIONS" default:".csv"`

	// Watch invalidates the listing cache when Dir changes (default: true)
	Watch bool `env:"GALLERY_WATCH" default:"true"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload and run endpoints (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects catalog writes with X-API-Key (default: false)
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

// ByteSize is a size in bytes parsed from human readable text ("100MB", "1.5 GiB").
type ByteSize int64

// ParseByteSize parses a human readable size.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return ByteSize(n), nil
}

// Bytes returns the size as an int64.
func (b ByteSize) Bytes() int64 { return int64(b) }

func (b ByteSize) String() string { return humanize.Bytes(uint64(b)) }

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Comma returns the configured delimiter as a rune, ',' when unset.
func (c *UploadConfig) Comma() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}
