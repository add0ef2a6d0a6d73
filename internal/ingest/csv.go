package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"moviedb/pkg/models"
)

type table struct {
	r      *csv.Reader
	header map[string]int
	line   int
}

func newTable(in io.Reader) (*table, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return &table{r: r, header: header, line: 1}, nil
}

// next returns the following non-empty row, or io.EOF.
func (t *table) next() ([]string, error) {
	for {
		row, err := t.r.Read()
		if err != nil {
			return nil, err
		}
		t.line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		return row, nil
	}
}

func (t *table) value(row []string, keys ...string) string {
	for _, k := range keys {
		if v := valueAt(t.header, row, k); v != "" {
			return v
		}
	}
	return ""
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		name = strings.TrimPrefix(name, "\ufeff")
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ReadLinks parses a MovieLens links.csv (movieId,imdbId,tmdbId) into a
// tmdbId → movieId map. Rows without a tmdbId are ignored.
func ReadLinks(in io.Reader) (map[int64]int64, error) {
	t, err := newTable(in)
	if err != nil {
		return nil, err
	}
	links := make(map[int64]int64)
	for {
		row, err := t.next()
		if errors.Is(err, io.EOF) {
			return links, nil
		}
		if err != nil {
			return nil, fmt.Errorf("links line %d: %w", t.line, err)
		}

		tmdb := t.value(row, "tmdbid", "tmdb_id")
		if tmdb == "" {
			continue
		}
		tmdbID, err := strconv.ParseInt(tmdb, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("links line %d: tmdbId: %w", t.line, err)
		}
		movieID, err := strconv.ParseInt(t.value(row, "movieid", "movie_id"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("links line %d: movieId: %w", t.line, err)
		}
		links[tmdbID] = movieID
	}
}

// ReadMovies parses a TMDB movie dataset export. Each movie takes its
// identity from links; TMDB rows with no MovieLens link are skipped and
// counted. A nil links map keeps the TMDB id as the movie id.
func ReadMovies(in io.Reader, links map[int64]int64) (movies []models.MovieDetails, skipped int, err error) {
	t, err := newTable(in)
	if err != nil {
		return nil, 0, err
	}
	for {
		row, err := t.next()
		if errors.Is(err, io.EOF) {
			return movies, skipped, nil
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("movies line %d: %w", t.line, err)
		}

		m, err := parseMovie(t, row)
		if err != nil {
			return nil, skipped, fmt.Errorf("movies line %d: %w", t.line, err)
		}
		if links != nil {
			id, ok := links[m.TMDBID]
			if !ok {
				skipped++
				continue
			}
			m.MovieID = id
		} else {
			m.MovieID = m.TMDBID
		}
		movies = append(movies, m)
	}
}

func parseMovie(t *table, row []string) (models.MovieDetails, error) {
	var (
		m   models.MovieDetails
		err error
	)
	if m.TMDBID, err = strconv.ParseInt(t.value(row, "id", "tmdb_id"), 10, 64); err != nil {
		return m, fmt.Errorf("id: %w", err)
	}
	m.Title = t.value(row, "title")
	if m.VoteAverage, err = parseFloat(t.value(row, "vote_average")); err != nil {
		return m, fmt.Errorf("vote_average: %w", err)
	}
	if m.VoteCount, err = parseInt(t.value(row, "vote_count")); err != nil {
		return m, fmt.Errorf("vote_count: %w", err)
	}
	if m.Popularity, err = parseFloat(t.value(row, "popularity")); err != nil {
		return m, fmt.Errorf("popularity: %w", err)
	}
	m.Status = t.value(row, "status")
	m.ReleaseDate = parseDate(t.value(row, "release_date"))
	runtime, err := parseInt(t.value(row, "runtime"))
	if err != nil {
		return m, fmt.Errorf("runtime: %w", err)
	}
	m.Runtime = int(runtime)
	m.Adult = parseBool(t.value(row, "adult"))
	m.PosterPath = t.value(row, "poster_path")
	m.BackdropPath = t.value(row, "backdrop_path")
	m.Overview = t.value(row, "overview")
	m.Genres = parseGenres(t.value(row, "genres"))
	m.Keywords = splitList(t.value(row, "keywords"))

	if m.Budget, err = parseMoney(t.value(row, "budget")); err != nil {
		return m, fmt.Errorf("budget: %w", err)
	}
	if m.Revenue, err = parseMoney(t.value(row, "revenue")); err != nil {
		return m, fmt.Errorf("revenue: %w", err)
	}
	return m, nil
}

// ReadRatings parses a MovieLens ratings.csv (userId,movieId,rating,timestamp).
func ReadRatings(in io.Reader) ([]models.Rating, error) {
	t, err := newTable(in)
	if err != nil {
		return nil, err
	}
	var out []models.Rating
	for {
		row, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("ratings line %d: %w", t.line, err)
		}

		var r models.Rating
		if r.UserID, err = strconv.ParseInt(t.value(row, "userid", "user_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("ratings line %d: userId: %w", t.line, err)
		}
		if r.MovieID, err = strconv.ParseInt(t.value(row, "movieid", "movie_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("ratings line %d: movieId: %w", t.line, err)
		}
		if r.Rating, err = strconv.ParseFloat(t.value(row, "rating"), 64); err != nil {
			return nil, fmt.Errorf("ratings line %d: rating: %w", t.line, err)
		}
		if r.Timestamp, err = strconv.ParseInt(t.value(row, "timestamp"), 10, 64); err != nil {
			return nil, fmt.Errorf("ratings line %d: timestamp: %w", t.line, err)
		}
		out = append(out, r)
	}
}

// ReadTags parses a MovieLens tags.csv (userId,movieId,tag,timestamp).
// Rows with an empty tag are dropped.
func ReadTags(in io.Reader) ([]models.Tag, error) {
	t, err := newTable(in)
	if err != nil {
		return nil, err
	}
	var out []models.Tag
	for {
		row, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("tags line %d: %w", t.line, err)
		}

		var tg models.Tag
		if tg.UserID, err = strconv.ParseInt(t.value(row, "userid", "user_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("tags line %d: userId: %w", t.line, err)
		}
		if tg.MovieID, err = strconv.ParseInt(t.value(row, "movieid", "movie_id"), 10, 64); err != nil {
			return nil, fmt.Errorf("tags line %d: movieId: %w", t.line, err)
		}
		if tg.Timestamp, err = strconv.ParseInt(t.value(row, "timestamp"), 10, 64); err != nil {
			return nil, fmt.Errorf("tags line %d: timestamp: %w", t.line, err)
		}
		tg.Tag = t.value(row, "tag")
		if tg.Tag == "" {
			continue
		}
		out = append(out, tg)
	}
}

func parseInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err == nil {
		return n, nil
	}
	// some exports write integral columns as 123.0
	f, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil {
		return 0, err
	}
	return int64(f), nil
}

func parseFloat(raw string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

// parseMoney treats 0 and blank as unknown.
func parseMoney(raw string) (*int64, error) {
	n, err := parseInt(raw)
	if err != nil || n == 0 {
		return nil, err
	}
	return &n, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(raw) {
	case "true", "1":
		return true
	default:
		return false
	}
}

// parseDate keeps well-formed YYYY-MM-DD dates and drops anything else.
func parseDate(raw string) string {
	if _, err := time.Parse(time.DateOnly, raw); err != nil {
		return ""
	}
	return raw
}

func parseGenres(raw string) []models.Genre {
	var out []models.Genre
	for _, label := range splitList(raw) {
		if g, ok := models.ParseGenreLabel(label); ok {
			out = append(out, g)
		}
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
