package enrich

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ratingposter/internal/logging"
	"ratingposter/pkg/models"
)

// CatalogSource fetches catalog pages.
type CatalogSource interface {
	Catalog(ctx context.Context, req models.CatalogRequest) (*models.CatalogPage, error)
}

// ItemEnricher enriches one catalog stub.
type ItemEnricher interface {
	EnrichStub(ctx context.Context, contentType string, stub models.Meta) models.Meta
}

// BatchEnricher enriches every item of a catalog page concurrently.
type BatchEnricher struct {
	catalogs CatalogSource
	items    ItemEnricher
	limit    int
	log      *zap.Logger
}

// NewBatch returns a BatchEnricher. limit <= 0 enriches all items at once.
func NewBatch(catalogs CatalogSource, items ItemEnricher, limit int, log *zap.Logger) *BatchEnricher {
	return &BatchEnricher{catalogs: catalogs, items: items, limit: limit, log: logging.OrNop(log)}
}

// Page fetches the page for req and enriches its items. Only an upstream
// catalog failure is returned; item failures leave the item's stub in place.
// Order and every non-item field of the page are preserved.
func (b *BatchEnricher) Page(ctx context.Context, req models.CatalogRequest) (*models.CatalogPage, error) {
	page, err := b.catalogs.Catalog(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	if page == nil {
		return &models.CatalogPage{Metas: []models.Meta{}}, nil
	}

	out := make([]models.Meta, len(page.Metas))
	g, gctx := errgroup.WithContext(ctx)
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}
	for i, stub := range page.Metas {
		g.Go(func() error {
			out[i] = b.enrichOne(gctx, req.Type, stub)
			return nil
		})
	}
	_ = g.Wait()

	b.log.Info("catalog enriched",
		zap.String("kind", string(req.Kind)),
		zap.String("type", req.Type),
		zap.Int("items", len(out)))

	return &models.CatalogPage{Metas: out, Extra: page.Extra}, nil
}

func (b *BatchEnricher) enrichOne(ctx context.Context, contentType string, stub models.Meta) (m models.Meta) {
	m = stub
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("item enrichment panicked", zap.String("id", stub.ID), zap.Any("panic", r))
			m = stub
		}
	}()
	return b.items.EnrichStub(ctx, contentType, stub)
}
