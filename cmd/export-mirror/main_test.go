package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ratingposter/internal/mirror"
	"ratingposter/internal/scraper"
	"ratingposter/pkg/models"
)

func TestCaptureCatalogAndTitles(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 6))))
	posterPNG := buf.Bytes()

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/top/catalog/movie/top.json":
			_, _ = w.Write([]byte(`{"metas":[{"id":"tt1","type":"movie","name":"One"},{"id":"tt2","type":"movie"}]}`))
		case "/meta/movie/tt1.json":
			_, _ = w.Write([]byte(`{"meta":{"id":"tt1","type":"movie","name":"One","poster":"` + srvURL + `/p/1.png","year":"2001"}}`))
		case "/search":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<div class="Ap5OSd"><div>91 · Metacritic</div><div>7.5/10 · IMDb</div></div>`))
		case "/p/1.png":
			_, _ = w.Write(posterPNG)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	dir := t.TempDir()
	ex := &exporter{
		dir:       dir,
		mirrorURL: "http://mirror.test",
		selector:  scraper.DefaultRatingSelector,
		cinemeta:  scraper.NewCinemeta(srv.URL, srv.URL, srv.Client()),
		search:    scraper.NewGoogleSearch(srv.URL+"/search", "", "", srv.Client()),
		posters:   scraper.NewPosterFetcher(srv.Client(), 0),
		log:       zap.NewNop(),
	}

	ids, err := ex.captureCatalog(context.Background(), models.CatalogRequest{Kind: models.KindTrending, Type: "movie"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tt1", "tt2"}, ids)
	_, err = os.Stat(filepath.Join(dir, "top", "catalog", "movie", "top.json"))
	require.NoError(t, err)

	// tt2 has no upstream record and is skipped.
	assert.Equal(t, 1, ex.captureAll(context.Background(), "movie", ids, 2))

	raw, err := os.ReadFile(mirror.MetaPath(dir, "movie", "tt1"))
	require.NoError(t, err)
	var saved struct {
		Meta models.Meta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(raw, &saved))
	assert.Equal(t, "http://mirror.test/posters/tt1.png", saved.Meta.Poster)
	assert.JSONEq(t, `"2001"`, string(saved.Meta.Extra["year"]))

	got, err := os.ReadFile(mirror.PosterPath(dir, "tt1", ".png"))
	require.NoError(t, err)
	assert.Equal(t, posterPNG, got)

	page, err := os.ReadFile(mirror.SearchPath(dir, "One - movie"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "91 · Metacritic")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "Ap5OSd", selectorClass("div.Ap5OSd"))
	assert.Equal(t, "panel", selectorClass("panel"))
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Equal(t, []string{"x", "y"}, dedupe([]string{"x", "y", "x"}))
	assert.Equal(t, ".jpg", posterExt([]byte{0xFF, 0xD8, 0xFF}))
}
