package scraper_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratingposter/internal/scraper"
	"ratingposter/pkg/models"
)

func TestCinemetaMeta(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		switch r.URL.Path {
		case "/meta/movie/tt0133093.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"meta":{"id":"tt0133093","type":"movie","name":"The Matrix","poster":"https://img/p.jpg","year":"1999"}}`))
		case "/meta/movie/tt0000000.json":
			_, _ = w.Write([]byte(`{"meta":{}}`))
		case "/meta/movie/tt5000000.json":
			http.Error(w, "boom", http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := scraper.NewCinemeta(srv.URL+"/", srv.URL, srv.Client())

	m, err := c.Meta(context.Background(), "movie", "tt0133093")
	require.NoError(t, err)
	assert.Equal(t, "/meta/movie/tt0133093.json", gotPath)
	assert.Equal(t, "The Matrix", m.Name)
	assert.Equal(t, "https://img/p.jpg", m.Poster)
	assert.JSONEq(t, `"1999"`, string(m.Extra["year"]))

	_, err = c.Meta(context.Background(), "movie", "tt0000000")
	assert.True(t, errors.Is(err, scraper.ErrNotFound))

	_, err = c.Meta(context.Background(), "movie", "tt9999999")
	assert.True(t, errors.Is(err, scraper.ErrNotFound))

	_, err = c.Meta(context.Background(), "movie", "tt5000000")
	require.Error(t, err)
	assert.False(t, errors.Is(err, scraper.ErrNotFound))

	_, err = c.Meta(context.Background(), "", "tt1")
	assert.Error(t, err)
}

func TestCinemetaCatalog(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"metas":[{"id":"tt1","type":"movie","name":"One"},{"id":"tt2","type":"movie","name":"Two"}],"hasMore":true}`))
	}))
	defer srv.Close()

	c := scraper.NewCinemeta(srv.URL, srv.URL, srv.Client())
	page, err := c.Catalog(context.Background(), models.CatalogRequest{Kind: models.KindTrending, Type: "movie", Skip: 20})
	require.NoError(t, err)
	assert.Equal(t, "/top/catalog/movie/top/skip=20.json", gotPath)
	require.Len(t, page.Metas, 2)
	assert.Equal(t, "tt2", page.Metas[1].ID)
	assert.JSONEq(t, `true`, string(page.Extra["hasMore"]))
}

func TestCinemetaCatalogUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := scraper.NewCinemeta(srv.URL, srv.URL, srv.Client())
	_, err := c.Catalog(context.Background(), models.CatalogRequest{Kind: models.KindFeatured, Type: "series"})
	assert.ErrorContains(t, err, "503")
}

func TestCatalogEndpoint(t *testing.T) {
	c := scraper.NewCinemeta("https://meta.test", "https://cat.test", nil)
	c.Now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		name string
		req  models.CatalogRequest
		want string
	}{
		{"trending", models.CatalogRequest{Kind: models.KindTrending, Type: "movie"}, "https://cat.test/top/catalog/movie/top.json"},
		{"trending genre", models.CatalogRequest{Kind: models.KindTrending, Type: "movie", Genre: "Sci-Fi", Skip: 40}, "https://cat.test/top/catalog/movie/top/genre=Sci-Fi&skip=40.json"},
		{"featured", models.CatalogRequest{Kind: models.KindFeatured, Type: "series"}, "https://cat.test/imdbRating/catalog/series/imdbRating.json"},
		{"best of year default", models.CatalogRequest{Kind: models.KindBestOfYear, Type: "movie"}, "https://cat.test/year/catalog/movie/year/genre=2024.json"},
		{"best of year explicit", models.CatalogRequest{Kind: models.KindBestOfYear, Type: "movie", Genre: "1999", Skip: 20}, "https://cat.test/year/catalog/movie/year/genre=1999&skip=20.json"},
		{"search", models.CatalogRequest{Kind: models.KindSearch, Type: "movie", Search: "the matrix"}, "https://meta.test/catalog/movie/top/search=the%20matrix.json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.CatalogEndpoint(tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := c.CatalogEndpoint(models.CatalogRequest{Kind: models.KindSearch, Type: "movie"})
	assert.Error(t, err)
	_, err = c.CatalogEndpoint(models.CatalogRequest{Kind: "bogus", Type: "movie"})
	assert.Error(t, err)
	_, err = c.CatalogEndpoint(models.CatalogRequest{Kind: models.KindTrending})
	assert.Error(t, err)
}
