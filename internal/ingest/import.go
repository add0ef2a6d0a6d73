package ingest

import (
	"context"
	"fmt"
	"io"
	"os"

	"moviedb/pkg/logging"
)

// Files names the dataset exports to load. Empty paths are skipped; Links
// is required whenever Movies is set.
type Files struct {
	Movies  string // TMDB movie dataset
	Links   string // MovieLens links.csv
	Ratings string // MovieLens ratings.csv
	Tags    string // MovieLens tags.csv
}

type Report struct {
	Movies         int `json:"movies"`
	MoviesSkipped  int `json:"movies_skipped"`
	Ratings        int `json:"ratings"`
	RatingsSkipped int `json:"ratings_skipped"`
	Tags           int `json:"tags"`
	TagsSkipped    int `json:"tags_skipped"`
}

// Import loads files in dependency order: movies first, then ratings and
// tags which reference them.
func (l *Loader) Import(ctx context.Context, files Files) (Report, error) {
	log := logging.With("ingest")
	var rep Report

	if files.Movies != "" {
		if files.Links == "" {
			return rep, fmt.Errorf("movies import needs a links file")
		}
		links, err := readFile(files.Links, ReadLinks)
		if err != nil {
			return rep, fmt.Errorf("read links: %w", err)
		}

		f, err := os.Open(files.Movies)
		if err != nil {
			return rep, fmt.Errorf("open movies: %w", err)
		}
		movies, skipped, err := ReadMovies(f, links)
		_ = f.Close()
		if err != nil {
			return rep, fmt.Errorf("read movies: %w", err)
		}
		if err := l.UpsertMovies(ctx, movies); err != nil {
			return rep, fmt.Errorf("import movies: %w", err)
		}
		rep.Movies, rep.MoviesSkipped = len(movies), skipped
		log.Info().Int("movies", rep.Movies).Int("unlinked", skipped).Msg("movies imported")
	}

	if files.Ratings != "" {
		ratings, err := readFile(files.Ratings, ReadRatings)
		if err != nil {
			return rep, fmt.Errorf("read ratings: %w", err)
		}
		rep.Ratings, rep.RatingsSkipped, err = l.UpsertRatings(ctx, ratings)
		if err != nil {
			return rep, fmt.Errorf("import ratings: %w", err)
		}
		log.Info().Int("ratings", rep.Ratings).Int("skipped", rep.RatingsSkipped).Msg("ratings imported")
	}

	if files.Tags != "" {
		tags, err := readFile(files.Tags, ReadTags)
		if err != nil {
			return rep, fmt.Errorf("read tags: %w", err)
		}
		rep.Tags, rep.TagsSkipped, err = l.UpsertTags(ctx, tags)
		if err != nil {
			return rep, fmt.Errorf("import tags: %w", err)
		}
		log.Info().Int("tags", rep.Tags).Int("skipped", rep.TagsSkipped).Msg("tags imported")
	}

	return rep, nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return read(f)
}
