// Package config provides configuration management for the Anchor daemon.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// Default values
	DefaultPort     = 8790
	DefaultLogLevel = "info"
	DefaultDataDir  = ".anchor"

	// Environment variable names
	EnvPort     = "ANCHOR_PORT"
	EnvLogLevel = "ANCHOR_LOG_LEVEL"
	EnvDataDir  = "ANCHOR_DATA_DIR"

	EnvSearchBaseURL = "ANCHOR_SEARCH_BASE_URL"
	EnvSearchAPIKey  = "ANCHOR_SEARCH_API_KEY"

	EnvFFmpegPath     = "ANCHOR_FFMPEG_PATH"
	EnvFFprobePath    = "ANCHOR_FFPROBE_PATH"
	EnvMaxReelSeconds = "ANCHOR_MAX_REEL_SECONDS"

	// Database filename
	DBFilename = "anchor.db"

	// Synthesis defaults
	DefaultMaxReelSeconds = 300 // 5 minute output cap

	// Media probing defaults
	DefaultFFmpegPath    = "ffmpeg"
	DefaultFFprobePath   = "ffprobe"
	DefaultProbeTimeout  = 30 * time.Second
	DefaultAlignTimeout  = 120 * time.Second
	DefaultSearchTimeout = 60 * time.Second
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	SearchBaseURL() string
	SearchAPIKey() string
	FFmpegPath() string
	FFprobePath() string
	MaxReelDuration() time.Duration
	ProbeTimeout() time.Duration
	AlignTimeout() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port           int
	logLevel       string
	dataDir        string
	searchBaseURL  string
	searchAPIKey   string
	ffmpegPath     string
	ffprobePath    string
	maxReelSeconds int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:           DefaultPort,
		logLevel:       DefaultLogLevel,
		dataDir:        defaultDataDir(),
		ffmpegPath:     DefaultFFmpegPath,
		ffprobePath:    DefaultFFprobePath,
		maxReelSeconds: DefaultMaxReelSeconds,
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.searchBaseURL = os.Getenv(EnvSearchBaseURL)
	cfg.searchAPIKey = os.Getenv(EnvSearchAPIKey)

	if fp := os.Getenv(EnvFFmpegPath); fp != "" {
		cfg.ffmpegPath = fp
	}
	if fp := os.Getenv(EnvFFprobePath); fp != "" {
		cfg.ffprobePath = fp
	}

	if ms := os.Getenv(EnvMaxReelSeconds); ms != "" {
		secs, err := strconv.Atoi(ms)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvMaxReelSeconds, err)
		}
		if secs < 1 {
			return nil, fmt.Errorf("invalid %s: must be positive", EnvMaxReelSeconds)
		}
		cfg.maxReelSeconds = secs
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// SearchBaseURL returns the semantic search service base URL.
// Empty means the search collaborator is not configured.
func (c *EnvConfig) SearchBaseURL() string {
	return c.searchBaseURL
}

// SearchAPIKey returns the bearer token for the search service
func (c *EnvConfig) SearchAPIKey() string {
	return c.searchAPIKey
}

// FFmpegPath returns the ffmpeg executable path or name
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// FFprobePath returns the ffprobe executable path or name
func (c *EnvConfig) FFprobePath() string {
	return c.ffprobePath
}

// MaxReelDuration returns the output duration cap for synthesized timelines
func (c *EnvConfig) MaxReelDuration() time.Duration {
	return time.Duration(c.maxReelSeconds) * time.Second
}

func (c *EnvConfig) ProbeTimeout() time.Duration {
	return DefaultProbeTimeout
}

func (c *EnvConfig) AlignTimeout() time.Duration {
	return DefaultAlignTimeout
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
