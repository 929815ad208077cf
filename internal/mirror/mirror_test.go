package mirror

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratingposter/internal/scraper"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "the-matrix-movie", Slug("The Matrix - movie"))
	assert.Equal(t, "", Slug("  "))
	assert.Equal(t, "amélie-2001", Slug("Amélie (2001)"))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	root, err := filepath.Abs(dir)
	require.NoError(t, err)

	p, ok := Resolve(dir, "/meta/movie/tt1.json")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "meta", "movie", "tt1.json"), p)

	p, ok = Resolve(dir, "/../../etc/passwd")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(p, root))

	_, ok = Resolve(dir, "/")
	assert.False(t, ok)
}

func TestRatingPageRoundTrip(t *testing.T) {
	text := "86% · Rotten Tomatoes\n8.2/10 · IMDb <tv>"
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(RatingPage("Ap5OSd", text)))
	require.NoError(t, err)
	assert.Equal(t, text, scraper.RegionText(doc, "div.Ap5OSd"))
}
