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
		moviesIn  = flag.String("movies", "", "TMDB movie dataset CSV")
		linksIn   = flag.String("links", "", "MovieLens links.csv (required with -movies)")
		ratingsIn = flag.String("ratings", "", "MovieLens ratings.csv")
		tagsIn    = flag.String("tags", "", "MovieLens tags.csv")
		timeout   = flag.Duration("timeout", 30*time.Minute, "overall import deadline")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config failed")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	store := database.MustOpen(app.StoreConfig(cfg.Database))
	defer store.Close()

	files := ingest.Files{Movies: *moviesIn, Links: *linksIn, Ratings: *ratingsIn, Tags: *tagsIn}
	rep, err := ingest.NewLoader(store).Import(ctx, files)
	if err != nil {
		logging.Fatal().Err(err).Msg("import failed")
	}

	logging.Info().
		Int("movies", rep.Movies).
		Int("movies_skipped", rep.MoviesSkipped).
		Int("ratings", rep.Ratings).
		Int("ratings_skipped", rep.RatingsSkipped).
		Int("tags", rep.Tags).
		Int("tags_skipped", rep.TagsSkipped).
		Msg("import finished")
}
