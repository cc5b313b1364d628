// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LastFM    LastFMConfig    `yaml:"lastfm"`
	Images    ImagesConfig    `yaml:"images"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Insights  InsightsConfig  `yaml:"insights"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	BasePath        string        `yaml:"base_path" default:"/api" validate:"omitempty,startswith=/"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	Hooks           HooksConfig   `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// LastFMConfig represents Last.fm API configuration.
// APIKey is intentionally not required: a missing key is reported per request.
type LastFMConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url" default:"https://ws.audioscrobbler.com/2.0/" validate:"url"`
	UserAgent         string        `yaml:"user_agent" default:"scrobblescope/1.0"`
	Timeout           time.Duration `yaml:"timeout" default:"10s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"25" validate:"gte=0"`
	Burst             int           `yaml:"burst" default:"60" validate:"gte=0"`
}

// ImagesConfig represents image resolution configuration.
type ImagesConfig struct {
	PlaceholderHashes   []string         `yaml:"placeholder_hashes" default:"[\"2a96cbd8b46e442fc41c2b86b821562f\"]"`
	PlaceholderSuffixes []string         `yaml:"placeholder_suffixes" default:"[\"/star.png\"]"`
	Providers           []ProviderConfig `yaml:"providers" validate:"dive"`
}

// ProviderConfig represents a single fallback image provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// CacheConfig represents response cache configuration.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" default:"10m" validate:"gt=0"`
	MaxEntries    int           `yaml:"max_entries" default:"1000" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" default:"1m"`
}

// RateLimitConfig represents inbound rate limiting configuration.
type RateLimitConfig struct {
	Window        time.Duration `yaml:"window" default:"60s" validate:"gt=0"`
	Max           int           `yaml:"max" default:"60" validate:"gte=1"`
	MaxClients    int           `yaml:"max_clients" default:"10000" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" default:"1m"`
}

// InsightsConfig holds the thresholds and caps of the overview builder.
type InsightsConfig struct {
	OutlierThreshold      float64 `yaml:"outlier_threshold" default:"1.5" validate:"gt=0"`
	MinOutlierTracks      int     `yaml:"min_outlier_tracks" default:"3" validate:"gte=1"`
	TopTracksFetch        int     `yaml:"top_tracks_fetch" default:"100" validate:"gte=1,lte=1000"`
	TopTracksShown        int     `yaml:"top_tracks_shown" default:"10" validate:"gte=1"`
	DurationLookups       int     `yaml:"duration_lookups" default:"50" validate:"gte=0"`
	DurationConcurrency   int     `yaml:"duration_concurrency" default:"50" validate:"gte=1"`
	SimilarLimit          int     `yaml:"similar_limit" default:"6" validate:"gte=1,lte=100"`
	TrendSample           int     `yaml:"trend_sample" default:"6" validate:"gte=1"`
	SearchLimit           int     `yaml:"search_limit" default:"10" validate:"gte=1,lte=100"`
	SearchImageEnrichment int     `yaml:"search_image_enrichment" default:"5" validate:"gte=0"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	if err := cfg.applyDefaults(); err != nil {
		panic(err)
	}
	return &cfg
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults. Environment variables take precedence over
// file values for sensitive fields.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if len(c.Images.Providers) == 0 {
		c.Images.Providers = []ProviderConfig{
			{Type: "deezer", DisplayName: "Deezer", Settings: map[string]any{}},
		}
	}
	return nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	for i := range c.Images.Providers {
		if c.Images.Providers[i].Type != "spotify" {
			continue
		}
		if c.Images.Providers[i].Settings == nil {
			c.Images.Providers[i].Settings = map[string]any{}
		}
		if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
			c.Images.Providers[i].Settings["client_id"] = v
		}
		if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
			c.Images.Providers[i].Settings["client_secret"] = v
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Insights.TopTracksShown > c.Insights.TopTracksFetch {
		return errors.Newf("insights.top_tracks_shown (%d) must not exceed insights.top_tracks_fetch (%d)",
			c.Insights.TopTracksShown, c.Insights.TopTracksFetch)
	}

	return nil
}

// HasLastFMKey reports whether a Last.fm API key is configured.
func (c *Config) HasLastFMKey() bool {
	return c.LastFM.APIKey != ""
}
