// Package addon serves the addon protocol over gin: the manifest, enriched
// meta records and enriched catalog pages.
package addon

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ratingposter/internal/logging"
	"ratingposter/pkg/models"
)

// MetaEnricher returns the enriched record for an id.
type MetaEnricher interface {
	Enrich(ctx context.Context, contentType, id string) (models.Meta, bool)
}

// CatalogPager returns an enriched catalog page.
type CatalogPager interface {
	Page(ctx context.Context, req models.CatalogRequest) (*models.CatalogPage, error)
}

type Handler struct {
	Manifest Manifest
	Metas    MetaEnricher
	Catalogs CatalogPager
	Log      *zap.Logger

	// Ping reports backing-store health for /ready. Nil means always ready.
	Ping func(ctx context.Context) error
}

func NewHandler(manifest Manifest, metas MetaEnricher, catalogs CatalogPager, log *zap.Logger) *Handler {
	return &Handler{Manifest: manifest, Metas: metas, Catalogs: catalogs, Log: logging.OrNop(log)}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/manifest.json", h.manifest)           // GET /manifest.json
	r.GET("/meta/:type/:id", h.meta)              // GET /meta/movie/tt0133093.json
	r.GET("/catalog/:type/:id", h.catalog)        // GET /catalog/movie/trending.json
	r.GET("/catalog/:type/:id/:extra", h.catalog) // GET /catalog/movie/trending/genre=Drama&skip=20.json
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)
}

// NewRouter returns a gin engine serving h. Path parameters are kept
// percent-encoded so an escaped "&" inside a search query survives until
// ParseExtra decodes it.
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = false
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.Use(gin.Recovery(), logging.Middleware(log), CORS())
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) manifest(c *gin.Context) {
	c.JSON(http.StatusOK, h.Manifest)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) meta(c *gin.Context) {
	contentType := unescape(c.Param("type"))
	id, ok := MetaID(unescape(strings.TrimSuffix(c.Param("id"), ".json")))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"meta": gin.H{}})
		return
	}

	m, ok := h.Metas.Enrich(c.Request.Context(), contentType, id)
	if !ok {
		logging.ForRequest(h.Log, c).Info("meta unavailable", zap.String("type", contentType), zap.String("id", id))
		c.JSON(http.StatusOK, gin.H{"meta": gin.H{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"meta": m})
}

func (h *Handler) catalog(c *gin.Context) {
	kind, ok := models.ParseCatalogKind(strings.TrimSuffix(c.Param("id"), ".json"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown catalog"})
		return
	}
	req, err := ParseExtra(strings.TrimSuffix(c.Param("extra"), ".json"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid extra"})
		return
	}
	req.Kind = kind
	req.Type = unescape(c.Param("type"))
	if kind == models.KindSearch && strings.TrimSpace(req.Search) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query required"})
		return
	}

	page, err := h.Catalogs.Page(c.Request.Context(), req)
	if err != nil {
		logging.ForRequest(h.Log, c).Warn("catalog unavailable",
			zap.String("kind", string(req.Kind)), zap.String("type", req.Type), zap.Error(err))
		c.JSON(http.StatusOK, models.CatalogPage{})
		return
	}
	c.JSON(http.StatusOK, page)
}

func unescape(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		return u
	}
	return s
}

// MetaID reduces a requested id to the title id that gets enriched:
// "tt0944947:1:2" becomes "tt0944947". Only IMDb ids are accepted.
func MetaID(raw string) (string, bool) {
	id, _, _ := strings.Cut(strings.TrimSpace(raw), ":")
	if !strings.HasPrefix(id, "tt") || len(id) == 2 {
		return "", false
	}
	return id, true
}

// ParseExtra decodes the extra path segment ("genre=Drama&skip=20").
func ParseExtra(extra string) (models.CatalogRequest, error) {
	var req models.CatalogRequest
	if strings.TrimSpace(extra) == "" {
		return req, nil
	}
	values, err := url.ParseQuery(extra)
	if err != nil {
		return req, err
	}
	req.Genre = values.Get("genre")
	req.Search = values.Get("search")
	if s := values.Get("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return req, errors.New("skip must be a non-negative integer")
		}
		req.Skip = n
	}
	return req, nil
}

// CORS lets addon clients on any origin call the API.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
