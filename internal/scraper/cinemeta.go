package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ratingposter/pkg/models"
)

// Cinemeta API bases (public)
const (
	DefaultMetaURL    = "https://v3-cinemeta.strem.io"
	DefaultCatalogURL = "https://cinemeta-catalogs.strem.io"
)

// ErrNotFound is returned when Cinemeta has no usable record for an id.
var ErrNotFound = errors.New("cinemeta: meta not found")

// Cinemeta fetches canonical records and catalog pages from Cinemeta.
type Cinemeta struct {
	MetaURL    string
	CatalogURL string
	Client     *http.Client
	Now        func() time.Time // best-of-year default; time.Now when nil
}

func NewCinemeta(metaURL, catalogURL string, client *http.Client) *Cinemeta {
	if strings.TrimSpace(metaURL) == "" {
		metaURL = DefaultMetaURL
	}
	if strings.TrimSpace(catalogURL) == "" {
		catalogURL = DefaultCatalogURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Cinemeta{
		MetaURL:    strings.TrimRight(metaURL, "/"),
		CatalogURL: strings.TrimRight(catalogURL, "/"),
		Client:     client,
	}
}

func (c *Cinemeta) Name() string { return "cinemeta" }

// Meta fetches GET {meta}/meta/{type}/{id}.json. Records without an id come
// back as ErrNotFound.
func (c *Cinemeta) Meta(ctx context.Context, contentType, id string) (*models.Meta, error) {
	contentType, id = strings.TrimSpace(contentType), strings.TrimSpace(id)
	if contentType == "" || id == "" {
		return nil, errors.New("cinemeta: type and id required")
	}
	endpoint := fmt.Sprintf("%s/meta/%s/%s.json", c.MetaURL, url.PathEscape(contentType), url.PathEscape(id))

	var payload struct {
		Meta *models.Meta `json:"meta"`
	}
	status, err := getJSON(ctx, c.Client, endpoint, nil, &payload)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, contentType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("cinemeta: meta %s %s: %w", contentType, id, err)
	}
	if !payload.Meta.Valid() {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, contentType, id)
	}
	return payload.Meta, nil
}

// Catalog fetches one catalog page.
func (c *Cinemeta) Catalog(ctx context.Context, req models.CatalogRequest) (*models.CatalogPage, error) {
	endpoint, err := c.CatalogEndpoint(req)
	if err != nil {
		return nil, err
	}
	var page models.CatalogPage
	if _, err := getJSON(ctx, c.Client, endpoint, nil, &page); err != nil {
		return nil, fmt.Errorf("cinemeta: catalog %s/%s: %w", req.Kind, req.Type, err)
	}
	return &page, nil
}

// CatalogEndpoint builds the upstream URL for req.
//
//	trending  {catalog}/top/catalog/{type}/top[/genre=..&skip=..].json
//	featured  {catalog}/imdbRating/catalog/{type}/imdbRating[/...].json
//	best_yoy  {catalog}/year/catalog/{type}/year/genre={year}[&skip=..].json
//	search    {meta}/catalog/{type}/top/search={q}[&skip=..].json
func (c *Cinemeta) CatalogEndpoint(req models.CatalogRequest) (string, error) {
	contentType := strings.TrimSpace(req.Type)
	if contentType == "" {
		return "", errors.New("cinemeta: catalog type required")
	}
	t := url.PathEscape(contentType)

	switch req.Kind {
	case models.KindTrending:
		return c.CatalogURL + "/top/catalog/" + t + "/top" + extraPath(req.Genre, "", req.Skip) + ".json", nil
	case models.KindFeatured:
		return c.CatalogURL + "/imdbRating/catalog/" + t + "/imdbRating" + extraPath(req.Genre, "", req.Skip) + ".json", nil
	case models.KindBestOfYear:
		year := strings.TrimSpace(req.Genre)
		if year == "" {
			now := time.Now
			if c.Now != nil {
				now = c.Now
			}
			year = strconv.Itoa(now().Year())
		}
		return c.CatalogURL + "/year/catalog/" + t + "/year" + extraPath(year, "", req.Skip) + ".json", nil
	case models.KindSearch:
		q := strings.TrimSpace(req.Search)
		if q == "" {
			return "", errors.New("cinemeta: search query required")
		}
		return c.MetaURL + "/catalog/" + t + "/top" + extraPath("", q, req.Skip) + ".json", nil
	default:
		return "", fmt.Errorf("cinemeta: unknown catalog kind %q", req.Kind)
	}
}

// extraPath renders the Stremio "extra" path segment, e.g. "/genre=Drama&skip=20".
func extraPath(genre, search string, skip int) string {
	var parts []string
	if g := strings.TrimSpace(genre); g != "" {
		parts = append(parts, "genre="+escapeExtra(g))
	}
	if search != "" {
		parts = append(parts, "search="+escapeExtra(search))
	}
	if skip > 0 {
		parts = append(parts, "skip="+strconv.Itoa(skip))
	}
	if len(parts) == 0 {
		return ""
	}
	return "/" + strings.Join(parts, "&")
}

func escapeExtra(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
