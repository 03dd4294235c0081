// Command prixnc-extract downloads the prix.nc product catalogue and writes
// CSV, XLSX, and PDF artifacts to the output directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/prixnc/extractor/pkg/cache"
	"github.com/prixnc/extractor/pkg/client"
	"github.com/prixnc/extractor/pkg/logging"
	"github.com/prixnc/extractor/pkg/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := LoadConfig()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	// Abort between pages on SIGINT/SIGTERM; exporters discard partial
	// artifacts on their own.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientCfg := client.DefaultConfig(cfg.BaseURL)
	clientCfg.APIKey = cfg.APIKey
	clientCfg.Timeout = cfg.Timeout
	clientCfg.Retry = client.RetryConfig{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Multiplier: 2.0,
	}
	clientCfg.CacheTTL = cfg.CacheTTL

	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Str("redis", cfg.RedisURL).Msg("Failed to connect to Redis")
			return 1
		}
		defer redisClient.Close()
		clientCfg.Cache = cache.NewManager(redisClient)
		log.Info().Str("redis", cfg.RedisURL).Msg("Page cache enabled")
	}

	apiClient, err := client.New(clientCfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create API client")
		return 1
	}
	defer apiClient.Close()

	runCfg := pipeline.Config{
		PageSize:      cfg.PageSize,
		MaxPages:      cfg.MaxPages,
		OutputDir:     cfg.OutputDir,
		BaseName:      cfg.Name,
		Formats:       cfg.Formats,
		Title:         cfg.Title,
		ExportPartial: cfg.ExportPartial,
	}

	p, err := pipeline.New(apiClient, runCfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create pipeline")
		return 1
	}

	if _, err := p.Run(ctx); err != nil {
		return 1
	}
	return 0
}
