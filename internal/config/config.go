// Package config loads application settings from environment variables with
// defaults, and validates them on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Merge    MergeConfig
	Schedule ScheduleConfig
	Stats    StatsConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including in-flight runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection settings. The database is
// optional: without a URL templates and run history are unavailable and
// rule sets come from the built-ins and the rules file only.
type DatabaseConfig struct {
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies the schema on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// MergeConfig holds pipeline settings.
type MergeConfig struct {
	// SourceDir is where the CRM exports are dropped (default: data)
	SourceDir string `env:"MERGE_SOURCE_DIR" default:"data"`

	// OutputDir receives the finished workbooks (default: output)
	OutputDir string `env:"MERGE_OUTPUT_DIR" default:"output"`

	// OutputPrefix starts every workbook filename (default: MAIL_MERGE)
	OutputPrefix string `env:"MERGE_OUTPUT_PREFIX" default:"MAIL_MERGE"`

	// Timezone interprets naive timestamps (default: America/Los_Angeles)
	Timezone string `env:"MERGE_TIMEZONE" envAlt:"TZ_NAME" default:"America/Los_Angeles"`

	// RulesFile is an optional YAML file of extra rule sets.
	RulesFile string `env:"MERGE_RULES_FILE"`

	// DefaultRuleSet forces a rule set when a request names none.
	DefaultRuleSet string `env:"MERGE_DEFAULT_RULE_SET"`

	// MaxUploadSize caps each uploaded source file in bytes (default: 50MB)
	MaxUploadSize int64 `env:"MERGE_MAX_UPLOAD_SIZE" default:"52428800"`

	// MaxConcurrent is the number of runs allowed at once (default: 2)
	MaxConcurrent int `env:"MERGE_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a run waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"MERGE_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single run (default: 5m)
	Timeout time.Duration `env:"MERGE_TIMEOUT" default:"5m"`
}

// ScheduleConfig holds background run settings.
type ScheduleConfig struct {
	Enabled   bool          `env:"SCHEDULE_ENABLED" default:"false"`
	Interval  time.Duration `env:"SCHEDULE_INTERVAL" default:"1h"`
	MainEvent string        `env:"SCHEDULE_MAIN_EVENT"`
	SubEvent  string        `env:"SCHEDULE_SUB_EVENT"`

	// WatchSources re-runs the merge when a new export lands in the source directory.
	WatchSources bool          `env:"SCHEDULE_WATCH_SOURCES" default:"false"`
	Debounce     time.Duration `env:"SCHEDULE_WATCH_DEBOUNCE" default:"2s"`
}

// StatsConfig holds statistics report settings.
type StatsConfig struct {
	Enabled   bool   `env:"STATS_ENABLED" default:"false"`
	OutputDir string `env:"STATS_OUTPUT_DIR" default:"reports"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects API requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// RateLimit is the number of API requests allowed per client IP per
	// minute. Zero disables rate limiting (default: 100)
	RateLimit int `env:"RATE_LIMIT_PER_MINUTE" default:"100"`
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
