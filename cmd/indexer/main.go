package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/setuhealth/setu/backend/internal/adapters/database"
	"github.com/setuhealth/setu/backend/internal/adapters/search"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/postgres"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/typesense"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	"github.com/setuhealth/setu/backend/pkg/config"
)

const pageSize = 200

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete existing Typesense collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger("setu-indexer", cfg.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run", interval).Msg("reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.HospitalsCollection).Msg("deleting collection before reindex")
		if _, err := tsClient.Client().Collection(typesense.HospitalsCollection).Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to delete collection")
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	hospitalRepo := database.NewHospitalAdapter(pgClient)
	searchRepo := search.NewTypesenseAdapter(tsClient)

	indexed, failed := 0, 0
	for offset := 0; ; offset += pageSize {
		hospitals, err := hospitalRepo.List(ctx, repositories.HospitalFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return err
		}
		for _, h := range hospitals {
			if err := searchRepo.Index(ctx, h); err != nil {
				failed++
				log.Warn().Err(err).Str("hospital_id", h.ID).Msg("failed to index hospital")
				continue
			}
			indexed++
		}
		if len(hospitals) < pageSize {
			break
		}
	}

	log.Info().Int("indexed", indexed).Int("failed", failed).Msg("indexing complete")
	return nil
}
