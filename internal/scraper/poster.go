package scraper

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultPosterMaxBytes caps a single poster download.
const DefaultPosterMaxBytes = 10 << 20

// ErrPosterTooLarge is returned when a poster exceeds MaxBytes.
var ErrPosterTooLarge = errors.New("poster: too large")

// PosterFetcher downloads poster images. It accepts http(s) URLs and data: URIs.
type PosterFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

func NewPosterFetcher(client *http.Client, maxBytes int64) *PosterFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultPosterMaxBytes
	}
	return &PosterFetcher{Client: client, MaxBytes: maxBytes}
}

func (f *PosterFetcher) Name() string { return "poster" }

// Fetch returns the raw bytes behind ref.
func (f *PosterFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("poster: empty reference")
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultPosterMaxBytes
	}

	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		data, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > limit {
			return nil, fmt.Errorf("%w: %d bytes", ErrPosterTooLarge, len(data))
		}
		return data, nil
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("poster: unsupported reference %q", ref)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := get(ctx, client, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("poster: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("poster: read: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrPosterTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, errors.New("poster: empty body")
	}
	return data, nil
}

// decodeDataURI handles "data:[<mediatype>][;base64],<data>".
func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(ref[len("data:"):], ",")
	if !ok {
		return nil, errors.New("poster: malformed data uri")
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("poster: data uri: %w", err)
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("poster: data uri: %w", err)
	}
	return []byte(data), nil
}
