package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestMirrorRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "meta", "movie", "tt1.json"), `{"meta":{"id":"tt1","name":"One"}}`)
	writeFile(t, filepath.Join(dir, "top", "catalog", "movie", "top", "genre=Drama&skip=20.json"), `{"metas":[]}`)
	writeFile(t, filepath.Join(dir, "meta", "movie", "broken.json"), `{"meta":`)
	writeFile(t, filepath.Join(dir, "search", "the-matrix.html"), `<div class="Ap5OSd">8.7/10 · IMDb</div>`)
	writeFile(t, filepath.Join(dir, "search", "default.html"), `<p>none</p>`)

	r := newRouter(dir, zap.NewNop())

	w := get(t, r, "/meta/movie/tt1.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"meta":{"id":"tt1","name":"One"}}`, w.Body.String())

	w = get(t, r, "/top/catalog/movie/top/genre=Drama&skip=20.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"metas":[]}`, w.Body.String())

	assert.Equal(t, http.StatusInternalServerError, get(t, r, "/meta/movie/broken.json").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/meta/movie/tt2.json").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/../../etc/passwd").Code)

	w = get(t, r, "/search?q=The+Matrix+-+movie")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<p>none</p>")

	w = get(t, r, "/search?q=The+Matrix")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ap5OSd")
}
