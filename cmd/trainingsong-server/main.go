// Command trainingsong-server runs the training-song HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/koayon/training-song/internal/chart"
	"github.com/koayon/training-song/internal/config"
	"github.com/koayon/training-song/internal/credentials"
	"github.com/koayon/training-song/internal/song"
	"github.com/koayon/training-song/internal/tokenstore"
	"github.com/koayon/training-song/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cipher, err := tokenstore.NewCipher(cfg.EncryptKey)
	if err != nil {
		return fmt.Errorf("invalid ENCRYPT_KEY: %w", err)
	}

	ctx := context.Background()

	store, err := tokenstore.New(ctx, cfg.DatabaseURL, cipher)
	if err != nil {
		return fmt.Errorf("connecting to token store: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating token store: %w", err)
	}

	provider := credentials.NewSpotifyProvider(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
	manager := credentials.NewManager(store, provider)

	charts := chart.NewClient(cfg.ChartAPIURL, time.Duration(cfg.ProviderTimeoutSeconds)*time.Second)

	service := song.NewService(charts, manager, song.Config{
		FallbackThresholdPercent: cfg.FallbackThresholdPercent,
		FractionCutoff:           cfg.FractionCutoff,
	})

	handlers := web.NewHandlers(service, store)
	server := web.NewServer(web.ServerConfig{
		Addr:                cfg.Addr,
		RateLimitPerSecond:  cfg.RateLimitPerSecond,
		RateLimitBurstLimit: cfg.RateLimitBurstLimit,
	}, handlers)

	log.WithFields(log.Fields{
		"addr":  cfg.Addr,
		"chart": cfg.ChartAPIURL,
	}).Info("training-song server configured")

	return server.Run()
}
