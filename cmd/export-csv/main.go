package main

import (
	"context"
	"flag"
	"time"

	"moviedb/internal/app"
	"moviedb/internal/ingest"
	"moviedb/pkg/database"
	"moviedb/pkg/logging"
	"moviedb/pkg/utils"
)

func main() {
	var (
		ratingsOut = flag.String("ratings", "data/ratings.csv", "output path for MovieLens ratings.csv")
		tagsOut    = flag.String("tags", "data/tags.csv", "output path for MovieLens tags.csv")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config failed")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store := database.MustOpen(app.StoreConfig(cfg.Database))
	defer store.Close()

	if _, err := ingest.NewLoader(store).Export(ctx, ingest.Files{Ratings: *ratingsOut, Tags: *tagsOut}); err != nil {
		logging.Fatal().Err(err).Msg("export failed")
	}
	logging.Info().Str("ratings", *ratingsOut).Str("tags", *tagsOut).Msg("exported dataset")
}
