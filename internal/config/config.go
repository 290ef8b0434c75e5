// Package config loads cinegrid settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CINEGRID_SERVER_ADDR.
const EnvPrefix = "CINEGRID"

// Config is the validated runtime configuration.
type Config struct {
	Server  Server
	Log     Log
	TMDB    TMDB
	Redis   Redis
	Catalog Catalog
}

// Server configures the HTTP listener.
type Server struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Log configures the global logger.
type Log struct {
	Level  string
	Pretty bool
}

// TMDB configures the upstream client.
type TMDB struct {
	APIKey            string
	AccessToken       string
	BaseURL           string
	Language          string
	UserAgent         string
	RequestsPerSecond float64
	Timeout           time.Duration
	FetchTimeout      time.Duration
	StaleWindow       time.Duration
}

// Redis configures the optional shared cache. An empty URL disables it.
type Redis struct {
	URL string
}

// Catalog configures grid paging.
type Catalog struct {
	PageSize            int
	Prefetch            bool
	PrefetchConcurrency int
	PrefetchTimeout     time.Duration
}

// Enabled reports whether a Redis URL is configured.
func (r Redis) Enabled() bool {
	return r.URL != ""
}

// Options parses the Redis URL. Bare host:port values are accepted.
func (r Redis) Options() (*redis.Options, error) {
	raw := r.URL
	if !strings.Contains(raw, "://") {
		raw = "redis://" + raw
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return opts, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("tmdb.base_url", "https://api.themoviedb.org/3")
	v.SetDefault("tmdb.language", "en-US")
	v.SetDefault("tmdb.user_agent", "cinegrid/0.1.0")
	v.SetDefault("tmdb.requests_per_second", 20)
	v.SetDefault("tmdb.timeout", "10s")
	v.SetDefault("tmdb.fetch_timeout", "30s")
	v.SetDefault("tmdb.stale_window", "10m")

	v.SetDefault("redis.url", "")

	v.SetDefault("catalog.page_size", 18)
	v.SetDefault("catalog.prefetch", true)
	v.SetDefault("catalog.prefetch_concurrency", 4)
	v.SetDefault("catalog.prefetch_timeout", "10s")
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names used by TMDB tooling and container platforms.
	_ = v.BindEnv("tmdb.api_key", EnvPrefix+"_TMDB_API_KEY", "TMDB_API_KEY")
	_ = v.BindEnv("tmdb.access_token", EnvPrefix+"_TMDB_ACCESS_TOKEN", "TMDB_ACCESS_TOKEN")
	_ = v.BindEnv("redis.url", EnvPrefix+"_REDIS_URL", "REDIS_URL")

	return v
}

// Load reads configuration. With an empty path it looks for cinegrid.yaml
// in the working directory and $HOME/.cinegrid; a missing file is not an
// error there, but an explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadFrom(New(), path)
}

// LoadFrom reads configuration into v, which may carry flag bindings.
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cinegrid")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cinegrid")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: Server{
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
		TMDB: TMDB{
			APIKey:            strings.TrimSpace(v.GetString("tmdb.api_key")),
			AccessToken:       strings.TrimSpace(v.GetString("tmdb.access_token")),
			BaseURL:           v.GetString("tmdb.base_url"),
			Language:          v.GetString("tmdb.language"),
			UserAgent:         v.GetString("tmdb.user_agent"),
			RequestsPerSecond: v.GetFloat64("tmdb.requests_per_second"),
			Timeout:           v.GetDuration("tmdb.timeout"),
			FetchTimeout:      v.GetDuration("tmdb.fetch_timeout"),
			StaleWindow:       v.GetDuration("tmdb.stale_window"),
		},
		Redis: Redis{
			URL: strings.TrimSpace(v.GetString("redis.url")),
		},
		Catalog: Catalog{
			PageSize:            v.GetInt("catalog.page_size"),
			Prefetch:            v.GetBool("catalog.prefetch"),
			PrefetchConcurrency: v.GetInt("catalog.prefetch_concurrency"),
			PrefetchTimeout:     v.GetDuration("catalog.prefetch_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks settings that would otherwise fail at first use.
// Credentials are not required here; commands that talk to TMDB check them.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.TMDB.RequestsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("tmdb.requests_per_second must be > 0 (got %v)", c.TMDB.RequestsPerSecond))
	}
	if c.TMDB.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("tmdb.timeout must be > 0 (got %v)", c.TMDB.Timeout))
	}
	if c.Catalog.PageSize < 1 || c.Catalog.PageSize > 20 {
		errs = append(errs, fmt.Errorf("catalog.page_size must be in 1..20 (got %d)", c.Catalog.PageSize))
	}
	if c.Catalog.Prefetch && c.Catalog.PrefetchConcurrency < 1 {
		errs = append(errs, fmt.Errorf("catalog.prefetch_concurrency must be > 0 (got %d)", c.Catalog.PrefetchConcurrency))
	}
	if c.Redis.Enabled() {
		if _, err := c.Redis.Options(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// HasCredentials reports whether a TMDB API key or access token is set.
func (c *Config) HasCredentials() bool {
	return c.TMDB.APIKey != "" || c.TMDB.AccessToken != ""
}
