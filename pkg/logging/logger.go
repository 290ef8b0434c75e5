// Package logging configures the zerolog logger shared by cinegrid's
// packages.
//
// Levels are used as follows. Debug covers cache hits, conditional requests
// and the TMDB pages fetched for a grid page. Info covers startup, shutdown
// and served pages. Warn covers degraded pages, retries, stale cache
// entries and dropped grid loads. Error is for exhausted retries and
// startup failures.
//
// Common fields: endpoint, media, genre, page, page_size, upstream_pages,
// error_class, generation, request_id.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name accepted in configuration.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var zerologLevels = map[LogLevel]zerolog.Level{
	LevelDebug: zerolog.DebugLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelError: zerolog.ErrorLevel,
}

// Zerolog returns the zerolog level for l, defaulting to info.
func (l LogLevel) Zerolog() zerolog.Level {
	if lvl, ok := zerologLevels[l]; ok {
		return lvl
	}
	return zerolog.InfoLevel
}

// Component names passed to NewLogger.
const (
	ComponentServer  = "http-server"
	ComponentCatalog = "catalog"
	ComponentGrid    = "grid"
	ComponentTMDB    = "tmdb-client"
)

// Config selects level and output format of the global logger.
type Config struct {
	Level   LogLevel
	Pretty  bool      // console output instead of JSON
	Output  io.Writer // os.Stderr when nil
	Service string    // added as "service" when set
}

// DefaultConfig is JSON at info level on stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr, Service: "cinegrid"}
}

// Setup installs the global logger described by cfg and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(cfg.Level.Zerolog())

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	log.Logger = lc.Logger()
	return log.Logger
}

// ParseLevel normalises a level from flags, env or the config file.
// An empty string means info.
func ParseLevel(s string) (LogLevel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return LevelInfo, nil
	case "warning":
		return LevelWarn, nil
	}
	if _, ok := zerologLevels[LogLevel(name)]; !ok {
		return "", fmt.Errorf("unknown log level %q", s)
	}
	return LogLevel(name), nil
}

// NewLogger derives a logger tagged with component from the global one.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
