// scraper probes the rating panel for one title and prints what each stage
// of the pipeline sees: the flattened panel text, the parsed ratings and the
// badge layout for a poster size. Useful when the search page markup moves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"ratingposter/internal/overlay"
	"ratingposter/internal/ratings"
	"ratingposter/internal/scraper"
)

type probeConfig struct {
	Title     string
	Type      string
	ID        string
	Width     int
	Height    int
	SearchURL string
	Selector  string
	MetaURL   string
}

func main() {
	var cfg probeConfig
	size := "300x450"
	flag.StringVar(&cfg.Title, "title", "", "title to search for")
	flag.StringVar(&cfg.ID, "id", "", "look the title up by id instead")
	flag.StringVar(&cfg.Type, "type", "movie", "content type")
	flag.StringVar(&size, "size", size, "poster size used for the layout, WxH")
	flag.StringVar(&cfg.SearchURL, "search-url", scraper.DefaultSearchURL, "search endpoint")
	flag.StringVar(&cfg.Selector, "selector", scraper.DefaultRatingSelector, "rating panel selector")
	flag.StringVar(&cfg.MetaURL, "meta-url", scraper.DefaultMetaURL, "Cinemeta meta base")
	flag.Parse()

	w, h, err := parseSize(size)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.Width, cfg.Height = w, h

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if err := probe(ctx, &http.Client{Timeout: 20 * time.Second}, cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "probe failed:", err)
		os.Exit(1)
	}
}

func probe(ctx context.Context, client *http.Client, cfg probeConfig, out io.Writer) error {
	title := strings.TrimSpace(cfg.Title)
	if cfg.ID != "" {
		m, err := scraper.NewCinemeta(cfg.MetaURL, "", client).Meta(ctx, cfg.Type, cfg.ID)
		if err != nil {
			return err
		}
		title = m.Name
		fmt.Fprintf(out, "record: %s %q\n", m.ID, m.Name)
	}
	if title == "" {
		return errors.New("pass -title or -id")
	}

	text, err := scraper.NewGoogleSearch(cfg.SearchURL, cfg.Selector, "", client).RatingText(ctx, title, cfg.Type)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "panel %s:\n", cfg.Selector)
	if text == "" {
		fmt.Fprintln(out, "  (not found)")
		return nil
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(out, "  %q\n", line)
	}

	r, err := ratings.Parse(text)
	if err != nil {
		fmt.Fprintf(out, "ratings: none (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "ratings: %s\n", r)

	spec, err := overlay.Compose(cfg.Width, cfg.Height, r, nil)
	if err != nil {
		fmt.Fprintf(out, "overlay: none (%v)\n", err)
		return nil
	}
	fmt.Fprintf(out, "overlay: %dx%d band at y=%d, item %dpx\n", spec.Width, spec.BandHeight, spec.BandTop(), spec.ItemHeight)
	for _, b := range spec.Badges {
		fmt.Fprintf(out, "  %-10s at (%d,%d) %s\n", b.Asset, b.X, b.Y, b.Score)
	}
	return nil
}

func parseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q: want WxH", s)
	}
	w, err1 := strconv.Atoi(ws)
	h, err2 := strconv.Atoi(hs)
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("size %q: want positive WxH", s)
	}
	return w, h, nil
}
