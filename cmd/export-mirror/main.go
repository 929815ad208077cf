// export-mirror captures live upstream responses into a directory that
// mirror-server can replay: meta records, catalog pages, the rating panel of
// each title's search page, and posters.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ratingposter/internal/logging"
	"ratingposter/internal/mirror"
	"ratingposter/internal/scraper"
	"ratingposter/pkg/models"
)

type exporter struct {
	dir       string
	mirrorURL string
	selector  string
	cinemeta  *scraper.Cinemeta
	search    *scraper.GoogleSearch
	posters   *scraper.PosterFetcher
	log       *zap.Logger
}

func main() {
	var (
		dir         = flag.String("dir", "data/mirror", "output directory")
		contentType = flag.String("type", "movie", "content type (movie|series)")
		ids         = flag.String("ids", "", "comma-separated ids to capture")
		catalogs    = flag.String("catalogs", "", "comma-separated catalog kinds to capture with their items")
		mirrorURL   = flag.String("mirror-url", "http://localhost:9000", "base URL posters are rewritten to")
		selector    = flag.String("selector", scraper.DefaultRatingSelector, "rating panel selector")
		concurrency = flag.Int("concurrency", 4, "parallel captures")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall timeout")
	)
	flag.Parse()

	log, err := logging.New("info", "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := &http.Client{Timeout: 20 * time.Second}
	ex := &exporter{
		dir:       *dir,
		mirrorURL: strings.TrimRight(*mirrorURL, "/"),
		selector:  *selector,
		cinemeta:  scraper.NewCinemeta("", "", client),
		search:    scraper.NewGoogleSearch("", *selector, "", client),
		posters:   scraper.NewPosterFetcher(client, 0),
		log:       log,
	}

	want := splitList(*ids)
	for _, k := range splitList(*catalogs) {
		kind, ok := models.ParseCatalogKind(k)
		if !ok {
			log.Fatal("unknown catalog kind", zap.String("kind", k))
		}
		items, err := ex.captureCatalog(ctx, models.CatalogRequest{Kind: kind, Type: *contentType})
		if err != nil {
			log.Fatal("catalog capture failed", zap.String("kind", k), zap.Error(err))
		}
		want = append(want, items...)
	}
	if len(want) == 0 {
		log.Fatal("nothing to capture: pass -ids and/or -catalogs")
	}

	captured := ex.captureAll(ctx, *contentType, dedupe(want), *concurrency)
	log.Info("✅ mirror written", zap.String("dir", *dir), zap.Int("titles", captured), zap.Int("requested", len(dedupe(want))))
}

func (ex *exporter) captureCatalog(ctx context.Context, req models.CatalogRequest) ([]string, error) {
	endpoint, err := ex.cinemeta.CatalogEndpoint(req)
	if err != nil {
		return nil, err
	}
	page, err := ex.cinemeta.Catalog(ctx, req)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	dest, ok := mirror.Resolve(ex.dir, u.EscapedPath())
	if !ok {
		return nil, fmt.Errorf("cannot map %s into %s", endpoint, ex.dir)
	}
	if err := writeJSON(dest, page); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(page.Metas))
	for _, m := range page.Metas {
		ids = append(ids, m.ID)
	}
	ex.log.Info("catalog captured", zap.String("kind", string(req.Kind)), zap.Int("items", len(ids)))
	return ids, nil
}

func (ex *exporter) captureAll(ctx context.Context, contentType string, ids []string, limit int) int {
	var (
		mu       sync.Mutex
		captured int
	)
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, id := range ids {
		g.Go(func() error {
			if err := ex.captureTitle(gctx, contentType, id); err != nil {
				ex.log.Warn("capture failed", zap.String("id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			captured++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return captured
}

func (ex *exporter) captureTitle(ctx context.Context, contentType, id string) error {
	m, err := ex.cinemeta.Meta(ctx, contentType, id)
	if err != nil {
		return err
	}

	if m.Name != "" {
		text, err := ex.search.RatingText(ctx, m.Name, contentType)
		if err != nil {
			ex.log.Warn("search capture failed", zap.String("id", id), zap.Error(err))
		} else {
			page := mirror.RatingPage(selectorClass(ex.selector), text)
			if err := writeFile(mirror.SearchPath(ex.dir, m.Name+" - "+contentType), []byte(page)); err != nil {
				return err
			}
		}
	}

	if m.Poster != "" {
		data, err := ex.posters.Fetch(ctx, m.Poster)
		if err != nil {
			ex.log.Warn("poster capture failed", zap.String("id", id), zap.Error(err))
		} else {
			ext := posterExt(data)
			if err := writeFile(mirror.PosterPath(ex.dir, id, ext), data); err != nil {
				return err
			}
			m.Poster = ex.mirrorURL + "/posters/" + url.PathEscape(id) + ext
		}
	}

	return writeJSON(mirror.MetaPath(ex.dir, contentType, id), map[string]any{"meta": m})
}

// selectorClass extracts the class name from a "tag.class" selector.
func selectorClass(selector string) string {
	if i := strings.LastIndex(selector, "."); i >= 0 {
		return selector[i+1:]
	}
	return selector
}

func posterExt(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return writeFile(path, b)
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
