// Package scraper holds the upstream collaborators of the enrichment
// pipeline: the Cinemeta metadata and catalog API, the search page the
// rating panel is scraped from, and poster downloads.
//
// Every source owns its own *http.Client and attempts each call once; the
// caller decides what a failure means.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxJSONBytes = 8 << 20
	maxHTMLBytes = 4 << 20
)

// get issues a GET and returns the response when the status is 200. The
// caller closes the body.
func get(ctx context.Context, client *http.Client, endpoint string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("request (latency=%v): %w", latency, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return resp, fmt.Errorf("status %d (latency=%v): %s", resp.StatusCode, latency, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

// getJSON decodes a 200 response into dst. The status code is returned even
// on error so callers can tell a 404 from a broken upstream.
func getJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, dst any) (int, error) {
	if header == nil {
		header = http.Header{}
	}
	header.Set("Accept", "application/json")

	resp, err := get(ctx, client, endpoint, header)
	if err != nil {
		if resp != nil {
			return resp.StatusCode, err
		}
		return 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBytes)).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	return resp.StatusCode, nil
}
