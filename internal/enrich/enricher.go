// Package enrich runs the rating pipeline for one record (Enricher) and for
// a whole catalog page (BatchEnricher).
//
// Enrichment is best effort at every stage. A record that cannot be enriched
// is returned as it came from upstream, and a failed poster step only loses
// the overlay, never the ratings already appended to the description.
package enrich

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ratingposter/internal/logging"
	"ratingposter/internal/overlay"
	"ratingposter/internal/poster"
	"ratingposter/internal/ratings"
	"ratingposter/pkg/models"
)

// ErrUpstreamUnavailable wraps failures of the upstream collaborators.
var ErrUpstreamUnavailable = errors.New("enrich: upstream unavailable")

// MetaSource looks up canonical records.
type MetaSource interface {
	Meta(ctx context.Context, contentType, id string) (*models.Meta, error)
}

// RatingSource returns the flattened rating panel text for a title.
type RatingSource interface {
	RatingText(ctx context.Context, title, contentType string) (string, error)
}

// PosterSource loads poster bytes from a reference.
type PosterSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Compositor burns an overlay onto poster bytes.
type Compositor interface {
	Composite(src []byte, spec overlay.Spec) ([]byte, bool)
}

// Enricher enriches single records. It holds no per-call state and is safe
// for concurrent use.
type Enricher struct {
	metas      MetaSource
	ratingsSrc RatingSource
	posters    PosterSource
	extractor  ratings.Extractor
	resolver   overlay.Resolver
	compositor Compositor
	log        *zap.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

func WithExtractor(x ratings.Extractor) Option {
	return func(e *Enricher) {
		if x != nil {
			e.extractor = x
		}
	}
}

func WithResolver(r overlay.Resolver) Option {
	return func(e *Enricher) {
		if r != nil {
			e.resolver = r
		}
	}
}

func WithCompositor(c Compositor) Option {
	return func(e *Enricher) {
		if c != nil {
			e.compositor = c
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.log = l
		}
	}
}

// New wires an Enricher. A nil poster source disables the overlay step.
func New(metas MetaSource, rs RatingSource, posters PosterSource, opts ...Option) *Enricher {
	e := &Enricher{
		metas:      metas,
		ratingsSrc: rs,
		posters:    posters,
		extractor:  ratings.NewExtractor(),
		resolver:   overlay.DefaultResolver,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compositor == nil {
		e.compositor = poster.New(poster.WithLogger(e.log))
	}
	return e
}

// Enrich fetches the record for (contentType, id) and enriches it. The bool
// is false only when no record could be fetched.
func (e *Enricher) Enrich(ctx context.Context, contentType, id string) (models.Meta, bool) {
	log := logging.OrNop(e.log).With(zap.String("type", contentType), zap.String("id", id))

	m, err := e.metas.Meta(ctx, contentType, id)
	if err != nil || !m.Valid() {
		log.Warn("meta lookup failed", zap.Error(err))
		return models.Meta{}, false
	}
	return e.enrichRecord(ctx, log, contentType, m.Clone()), true
}

// EnrichStub enriches the record behind a catalog stub, or returns the stub
// itself when no record is available.
func (e *Enricher) EnrichStub(ctx context.Context, contentType string, stub models.Meta) models.Meta {
	if stub.ID == "" {
		return stub
	}
	if m, ok := e.Enrich(ctx, contentType, stub.ID); ok {
		return m
	}
	return stub
}

func (e *Enricher) enrichRecord(ctx context.Context, log *zap.Logger, contentType string, m models.Meta) models.Meta {
	if strings.TrimSpace(m.Name) == "" {
		log.Debug("record has no name, skipping ratings")
		return m
	}

	text, err := e.ratingsSrc.RatingText(ctx, m.Name, contentType)
	if err != nil {
		log.Warn("rating lookup failed", zap.Error(errors.Join(ErrUpstreamUnavailable, err)))
		return m
	}
	r, err := e.extractor.Extract(text)
	if len(r) == 0 {
		log.Debug("no ratings found", zap.Error(err))
		return m
	}
	log.Debug("ratings", zap.Any("ratings", r.Map()))

	enriched := m
	enriched.Description = strings.TrimSpace(m.Description + " " + r.String())

	if enriched.Poster == "" || e.posters == nil {
		return enriched
	}
	if p, ok := e.overlayPoster(ctx, log, enriched.Poster, r); ok {
		enriched.Poster = p
	}
	return enriched
}

// overlayPoster returns the composited poster as a data URI.
func (e *Enricher) overlayPoster(ctx context.Context, log *zap.Logger, ref string, r ratings.Ratings) (string, bool) {
	src, err := e.posters.Fetch(ctx, ref)
	if err != nil {
		log.Warn("poster fetch failed", zap.Error(errors.Join(ErrUpstreamUnavailable, err)))
		return "", false
	}
	w, h, err := poster.Dimensions(src)
	if err != nil {
		log.Warn("poster unreadable", zap.Error(err))
		return "", false
	}
	spec, err := overlay.Compose(w, h, r, e.resolver)
	if err != nil {
		log.Debug("no overlay", zap.Error(err))
		return "", false
	}
	out, applied := e.compositor.Composite(src, spec)
	if !applied {
		return "", false
	}
	return "data:" + http.DetectContentType(out) + ";base64," + base64.StdEncoding.EncodeToString(out), true
}
