// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Config holds all configuration for the training-song server.
type Config struct {
	Addr string `envconfig:"ADDR" default:"0.0.0.0:8000"`

	// DatabaseURL is the Postgres connection string for the token store.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// EncryptKey is the Fernet key used to encrypt tokens at rest.
	// It must stay stable across restarts: rows written under a
	// different key are permanently undecryptable.
	EncryptKey string `envconfig:"ENCRYPT_KEY" required:"true"`

	SpotifyClientID     string `envconfig:"CLIENT_ID" required:"true"`
	SpotifyClientSecret string `envconfig:"CLIENT_SECRET" required:"true"`
	SpotifyRedirectURI  string `envconfig:"SPOTIFY_REDIRECT_URI" default:"http://localhost:8000/local_callback"`

	ChartAPIURL string `envconfig:"CHART_API_URL" default:"https://billboard.koayon.dev/v1"`

	// ProviderTimeoutSeconds caps each outbound call (chart,
	// authorization, playback). A timeout is treated like any other
	// transport failure.
	ProviderTimeoutSeconds int `envconfig:"PROVIDER_TIMEOUT_SECONDS" default:"15"`

	// FallbackThresholdPercent marks the chart provider's coverage
	// start: percentages below it resolve from the curated table
	// instead of the provider. 52 corresponds to the hot-100's 1952
	// start.
	FallbackThresholdPercent float64 `envconfig:"FALLBACK_THRESHOLD_PERCENT" default:"52"`

	// FractionCutoff: percentages strictly below this value are
	// treated as fractions and scaled by 100. The historical default
	// of 1.0 means a literal 0.5% cannot be requested; deployments
	// that need sub-1% values can set this to 0 to disable rescaling.
	FractionCutoff float64 `envconfig:"FRACTION_CUTOFF" default:"1"`

	RateLimitPerSecond  int `envconfig:"RATE_LIMIT_PER_SECOND" default:"5"`
	RateLimitBurstLimit int `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"10"`
}

// Load reads configuration from the environment, loading a local .env
// file first if one exists.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debugf("no .env file loaded: %v", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("processing environment: %w", err)
	}
	return cfg, nil
}
