package addon_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratingposter/internal/addon"
	"ratingposter/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEnricher struct {
	gotType, gotID string
	meta           models.Meta
	ok             bool
}

func (f *fakeEnricher) Enrich(_ context.Context, contentType, id string) (models.Meta, bool) {
	f.gotType, f.gotID = contentType, id
	return f.meta, f.ok
}

type fakePager struct {
	got  models.CatalogRequest
	page *models.CatalogPage
	err  error
}

func (f *fakePager) Page(_ context.Context, req models.CatalogRequest) (*models.CatalogPage, error) {
	f.got = req
	return f.page, f.err
}

func serve(t *testing.T, h *addon.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	addon.NewRouter(h, nil).ServeHTTP(w, req)
	return w
}

func TestManifest(t *testing.T) {
	h := addon.NewHandler(addon.DefaultManifest("1.2.3"), &fakeEnricher{}, &fakePager{}, nil)
	w := serve(t, h, http.MethodGet, "/manifest.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var m addon.Manifest
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "1.2.3", m.Version)
	assert.Equal(t, []string{"tt"}, m.IDPrefixes)
	assert.Len(t, m.Catalogs, 8)
	for _, c := range m.Catalogs {
		if c.ID == "search" {
			assert.True(t, c.Extra[0].IsRequired)
		}
	}
}

func TestMetaRoute(t *testing.T) {
	enricher := &fakeEnricher{
		meta: models.Meta{ID: "tt0944947", Type: "series", Name: "Game of Thrones", Description: "d (imdb: 9.2)"},
		ok:   true,
	}
	h := addon.NewHandler(addon.DefaultManifest(""), enricher, &fakePager{}, nil)

	w := serve(t, h, http.MethodGet, "/meta/series/tt0944947:1:2.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "series", enricher.gotType)
	assert.Equal(t, "tt0944947", enricher.gotID)
	assert.JSONEq(t, `{"meta":{"id":"tt0944947","type":"series","name":"Game of Thrones","description":"d (imdb: 9.2)"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetaRouteEmptyAnswers(t *testing.T) {
	enricher := &fakeEnricher{ok: false}
	h := addon.NewHandler(addon.DefaultManifest(""), enricher, &fakePager{}, nil)

	w := serve(t, h, http.MethodGet, "/meta/movie/tt404.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"meta":{}}`, w.Body.String())

	enricher.gotID = ""
	w = serve(t, h, http.MethodGet, "/meta/movie/kitsu:123.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"meta":{}}`, w.Body.String())
	assert.Empty(t, enricher.gotID)
}

func TestCatalogRoute(t *testing.T) {
	pager := &fakePager{page: &models.CatalogPage{
		Metas: []models.Meta{{ID: "tt1", Type: "movie", Name: "One"}},
		Extra: map[string]json.RawMessage{"hasMore": json.RawMessage(`true`)},
	}}
	h := addon.NewHandler(addon.DefaultManifest(""), &fakeEnricher{}, pager, nil)

	w := serve(t, h, http.MethodGet, "/catalog/movie/trending/genre=Sci-Fi&skip=20.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CatalogRequest{Kind: models.KindTrending, Type: "movie", Genre: "Sci-Fi", Skip: 20}, pager.got)
	assert.JSONEq(t, `{"hasMore":true,"metas":[{"id":"tt1","type":"movie","name":"One"}]}`, w.Body.String())

	w = serve(t, h, http.MethodGet, "/catalog/series/best_yoy.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CatalogRequest{Kind: models.KindBestOfYear, Type: "series"}, pager.got)

	w = serve(t, h, http.MethodGet, "/catalog/movie/search/search=rock%20%26%20roll.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rock & roll", pager.got.Search)
}

func TestCatalogRouteErrors(t *testing.T) {
	pager := &fakePager{err: errors.New("upstream down")}
	h := addon.NewHandler(addon.DefaultManifest(""), &fakeEnricher{}, pager, nil)

	w := serve(t, h, http.MethodGet, "/catalog/movie/featured.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"metas":[]}`, w.Body.String())

	w = serve(t, h, http.MethodGet, "/catalog/movie/nope.json")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(t, h, http.MethodGet, "/catalog/movie/trending/skip=abc.json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(t, h, http.MethodGet, "/catalog/movie/search.json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndReady(t *testing.T) {
	h := addon.NewHandler(addon.DefaultManifest(""), &fakeEnricher{}, &fakePager{}, nil)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(t, h, http.MethodGet, "/ready").Code)

	h.Ping = func(context.Context) error { return errors.New("db locked") }
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, h, http.MethodGet, "/ready").Code)
}

func TestCORSPreflight(t *testing.T) {
	h := addon.NewHandler(addon.DefaultManifest(""), &fakeEnricher{}, &fakePager{}, nil)
	w := serve(t, h, http.MethodOptions, "/manifest.json")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetaID(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"tt0133093":     {"tt0133093", true},
		"tt0944947:1:2": {"tt0944947", true},
		" tt1 ":         {"tt1", true},
		"tt":            {"", false},
		"kitsu:1":       {"", false},
		"":              {"", false},
	}
	for in, tc := range cases {
		got, ok := addon.MetaID(in)
		assert.Equal(t, tc.ok, ok, in)
		assert.Equal(t, tc.want, got, in)
	}
}
