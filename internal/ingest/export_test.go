package ingest_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviedb/internal/ingest"
	"moviedb/internal/ingest/ingesttest"
	"moviedb/pkg/database/dbtest"
)

func TestExportRoundTrips(t *testing.T) {
	s := dbtest.New(t)
	ingesttest.Seed(t, s)
	l := ingest.NewLoader(s)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := l.ExportRatings(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, len(ingesttest.Ratings()), n)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "userId,movieId,rating,timestamp", lines[0])
	assert.Equal(t, "10,1,4.0,1000", lines[1])

	ratings, err := ingest.ReadRatings(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, ingesttest.Ratings(), ratings)

	buf.Reset()
	n, err = l.ExportTags(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, len(ingesttest.Tags()), n)
	tags, err := ingest.ReadTags(&buf)
	require.NoError(t, err)
	assert.ElementsMatch(t, ingesttest.Tags(), tags)
}

func TestExportFiles(t *testing.T) {
	s := dbtest.New(t)
	ingesttest.Seed(t, s)
	dir := t.TempDir()

	files := ingest.Files{
		Ratings: filepath.Join(dir, "out", "ratings.csv"),
		Tags:    filepath.Join(dir, "out", "tags.csv"),
	}
	rep, err := ingest.NewLoader(s).Export(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 7, rep.Ratings)
	assert.Equal(t, 4, rep.Tags)

	data, err := os.ReadFile(files.Tags)
	require.NoError(t, err)
	assert.Contains(t, string(data), "10,4,cyberpunk,1600")
}
