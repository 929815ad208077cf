// mirror-server serves a directory of captured upstream responses so the
// api-server can run offline. Point the RATINGPOSTER_CINEMETA_*_URL variables
// at it and RATINGPOSTER_SEARCH_URL at its /search endpoint.
//
// Layout under -dir (see internal/mirror; export-mirror writes it):
//
//	meta/{type}/{id}.json      meta records
//	{upstream path}.json       catalog pages, e.g. top/catalog/movie/top/skip=20.json
//	search/{slug}.html         search pages, slug of the q parameter
//	search/default.html        fallback search page
//	posters/{id}.{ext}         poster images
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ratingposter/internal/logging"
	"ratingposter/internal/mirror"
)

func main() {
	var (
		dir  = flag.String("dir", "data/mirror", "mirror directory")
		addr = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	log, err := logging.New("info", "console")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(*dir, log)

	log.Info("mirror-server listening", zap.String("addr", *addr), zap.String("dir", *dir))
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatal("mirror-server stopped", zap.Error(err))
	}
}

func newRouter(dir string, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = false
	router.Use(gin.Recovery(), logging.Middleware(log))

	router.GET("/search", func(c *gin.Context) {
		for _, p := range []string{mirror.SearchPath(dir, c.Query("q")), mirror.DefaultSearchPath(dir)} {
			if b, err := os.ReadFile(p); err == nil {
				c.Data(http.StatusOK, "text/html; charset=utf-8", b)
				return
			}
		}
		c.String(http.StatusNotFound, "no mirrored search page")
	})

	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Status(http.StatusMethodNotAllowed)
			return
		}
		p, ok := mirror.Resolve(dir, c.Request.URL.EscapedPath())
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		b, err := os.ReadFile(p)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if strings.HasSuffix(p, ".json") {
			// validate JSON so a bad capture doesn't silently break clients
			var tmp any
			if err := json.Unmarshal(b, &tmp); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid JSON in " + p + ": " + err.Error()})
				return
			}
			c.Data(http.StatusOK, "application/json", b)
			return
		}
		c.Data(http.StatusOK, http.DetectContentType(b), b)
	})
	return router
}
