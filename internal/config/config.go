// Package config loads the server and batch settings from environment
// variables. Check thresholds are handed to the engine, which validates them.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/monisenforest/internal/check"
)

// Config holds all settings.
type Config struct {
	Server    ServerConfig
	Check     CheckConfig
	Reference ReferenceConfig
	Batch     BatchConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s" validate:"gte=0"`

	// WriteTimeout is the maximum duration for writing response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// CheckConfig holds the thresholds of the check rules.
type CheckConfig struct {
	// GrowthPerYear and GrowthIntercept bound the gbh increment (cm) between
	// censuses: intercept + per-year * years (defaults: 2.5, 3.8)
	GrowthPerYear   float64 `env:"CHECK_GROWTH_PER_YEAR" default:"2.5"`
	GrowthIntercept float64 `env:"CHECK_GROWTH_INTERCEPT" default:"3.8"`

	// MinIncrement is the largest plausible shrinkage, negative (default: -3.1)
	MinIncrement float64 `env:"CHECK_MIN_INCREMENT" default:"-3.1"`

	// AliveThreshold is the gbh of a registered live stem (default: 15)
	AliveThreshold float64 `env:"CHECK_ALIVE_THRESHOLD" default:"15"`

	// RecruitBase is the gbh a recruit may start from (default: 15)
	RecruitBase float64 `env:"CHECK_RECRUIT_BASE" default:"15"`

	// Trap installation windows in days (defaults: 11, 45, 45)
	InstallMinDays    int `env:"CHECK_INSTALL_MIN_DAYS" default:"11"`
	InstallMaxDays    int `env:"CHECK_INSTALL_MAX_DAYS" default:"45"`
	InstallMaxGapDays int `env:"CHECK_INSTALL_MAX_GAP_DAYS" default:"45"`

	// OverwinterPlots are plots whose traps stay out over winter
	// (default: the manual's list)
	OverwinterPlots []string `env:"CHECK_OVERWINTER_PLOTS"`

	// OutlierMethod is tukey or grubbs (default: tukey)
	OutlierMethod   string  `env:"CHECK_OUTLIER_METHOD,lower" default:"tukey"`
	OutlierK        float64 `env:"CHECK_OUTLIER_K" default:"1.5"`
	OutlierMinGroup int     `env:"CHECK_OUTLIER_MIN_GROUP" default:"5"`
	OutlierAlpha    float64 `env:"CHECK_OUTLIER_ALPHA" default:"0.01"`

	// Thorough enables the slow rules by default (default: false)
	Thorough bool `env:"CHECK_THOROUGH" default:"false"`

	// Disable lists rule ids that never run
	Disable []string `env:"CHECK_DISABLE"`
}

// Engine converts the settings into the check engine configuration.
func (c CheckConfig) Engine() check.Config {
	cfg := check.DefaultConfig()
	cfg.Growth = check.GrowthConfig{
		PerYear:      c.GrowthPerYear,
		Intercept:    c.GrowthIntercept,
		MinIncrement: c.MinIncrement,
	}
	cfg.AliveThreshold = c.AliveThreshold
	cfg.RecruitBase = c.RecruitBase
	cfg.Installation.MinDays = c.InstallMinDays
	cfg.Installation.MaxDays = c.InstallMaxDays
	cfg.Installation.MaxGapDays = c.InstallMaxGapDays
	if len(c.OverwinterPlots) > 0 {
		cfg.Installation.OverwinterPlots = append([]string(nil), c.OverwinterPlots...)
	}
	cfg.Outlier = check.OutlierConfig{
		Method:   c.OutlierMethod,
		K:        c.OutlierK,
		MinGroup: c.OutlierMinGroup,
		Alpha:    c.OutlierAlpha,
	}
	cfg.Thorough = c.Thorough
	if len(c.Disable) > 0 {
		cfg.Rules = make(map[check.RuleID]bool, len(c.Disable))
		for _, id := range c.Disable {
			cfg.Rules[check.RuleID(id)] = false
		}
	}
	return cfg
}

// ReferenceConfig holds the paths of the reference data files. Empty
// paths disable the rules that need them.
type ReferenceConfig struct {
	// TreeSpecies is the species list used for tree data
	TreeSpecies string `env:"REF_TREE_SPECIES"`

	// SeedSpecies is the species list used for seed data
	SeedSpecies string `env:"REF_SEED_SPECIES"`

	// MeshXY is the JSON file of plot geometry (mesh xy combinations)
	MeshXY string `env:"REF_MESH_XY"`

	// TrapList is the JSON file of trap ids per plot
	TrapList string `env:"REF_TRAP_LIST"`

	// Suppress is the CSV or XLSX list of confirmed findings to hide
	Suppress string `env:"REF_SUPPRESS,alias=REF_EXCEPTION_LIST"`

	// ReloadInterval is how often the suppression list is re-read (default: 1m)
	ReloadInterval time.Duration `env:"REF_RELOAD_INTERVAL" default:"1m" validate:"gte=0"`
}

// BatchConfig holds check concurrency settings.
type BatchConfig struct {
	// MaxConcurrent is the maximum number of parallel checks (default: 4)
	MaxConcurrent int `env:"CHECK_MAX_CONCURRENT" default:"4" validate:"gt=0"`

	// MaxWaitTime is how long to wait for a check slot (default: 30s)
	MaxWaitTime time.Duration `env:"CHECK_MAX_WAIT_TIME" default:"30s" validate:"gt=0"`

	// Timeout is the maximum duration of a single check (default: 2m)
	Timeout time.Duration `env:"CHECK_TIMEOUT" default:"2m" validate:"gt=0"`
}

// UploadConfig holds file upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 32MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"33554432" validate:"gt=0"`

	// Encoding is the text encoding of uploaded CSV files (default: utf-8)
	Encoding string `env:"UPLOAD_ENCODING,lower" default:"utf-8" validate:"oneof=utf-8 utf8 shift_jis shift-jis sjis cp932 windows-31j"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// CheckLimit is requests per minute for the check endpoint (default: 20)
	CheckLimit int `env:"RATE_LIMIT_CHECK" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL,lower" default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT,lower" default:"text" validate:"oneof=text json"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
