package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ratingposter/internal/enrich"
	"ratingposter/internal/logging"
	"ratingposter/internal/scraper"
	"ratingposter/pkg/models"
)

const defaultBaseURL = "http://localhost:7000"

type options struct {
	baseURL string
	timeout time.Duration
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "ratingposter",
		Short:        "Query a rating poster addon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.baseURL, "api", envOr("RATINGPOSTER_API", defaultBaseURL), "addon base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "request timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging for --local runs")

	root.AddCommand(newMetaCmd(opts), newCatalogCmd(opts))
	return root
}

func newMetaCmd(opts *options) *cobra.Command {
	var (
		posterOut string
		local     bool
	)
	cmd := &cobra.Command{
		Use:     "meta <type> <id>",
		Short:   "Fetch one enriched record",
		Example: "  ratingposter meta movie tt0133093 --poster-out matrix.png",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var (
				meta models.Meta
				err  error
			)
			if local {
				meta, err = localMeta(ctx, opts, args[0], args[1])
			} else {
				meta, err = remoteMeta(ctx, opts, args[0], args[1])
			}
			if err != nil {
				return err
			}

			if posterOut != "" {
				if err := writePoster(ctx, meta.Poster, posterOut); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "poster written to %s\n", posterOut)
				meta.Poster = "file://" + posterOut
			}
			return printJSON(cmd.OutOrStdout(), meta)
		},
	}
	cmd.Flags().StringVar(&posterOut, "poster-out", "", "write the poster image to this file")
	cmd.Flags().BoolVar(&local, "local", false, "run the pipeline in-process instead of calling the addon")
	return cmd
}

func newCatalogCmd(opts *options) *cobra.Command {
	var (
		genre  string
		search string
		skip   int
		full   bool
	)
	cmd := &cobra.Command{
		Use:     "catalog <type> <trending|featured|search|best_yoy>",
		Short:   "Fetch one enriched catalog page",
		Example: "  ratingposter catalog movie search --search \"the matrix\"",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := models.ParseCatalogKind(args[1])
			if !ok {
				return fmt.Errorf("unknown catalog %q", args[1])
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			endpoint := CatalogURL(opts.baseURL, models.CatalogRequest{
				Kind: kind, Type: args[0], Genre: genre, Search: search, Skip: skip,
			})
			var page models.CatalogPage
			if err := getJSON(ctx, &http.Client{}, endpoint, &page); err != nil {
				return err
			}
			if full {
				return printJSON(cmd.OutOrStdout(), page)
			}
			for _, m := range page.Metas {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-40s %s\n", m.ID, m.Name, ratingSuffix(m.Description))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&genre, "genre", "", "genre filter (year for best_yoy)")
	cmd.Flags().StringVar(&search, "search", "", "search query")
	cmd.Flags().IntVar(&skip, "skip", 0, "items to skip")
	cmd.Flags().BoolVar(&full, "json", false, "print the whole page as JSON")
	return cmd
}

func remoteMeta(ctx context.Context, opts *options, contentType, id string) (models.Meta, error) {
	endpoint := strings.TrimRight(opts.baseURL, "/") + "/meta/" + url.PathEscape(contentType) + "/" + url.PathEscape(id) + ".json"
	var resp struct {
		Meta models.Meta `json:"meta"`
	}
	if err := getJSON(ctx, &http.Client{}, endpoint, &resp); err != nil {
		return models.Meta{}, err
	}
	if !resp.Meta.Valid() {
		return models.Meta{}, fmt.Errorf("no record for %s %s", contentType, id)
	}
	return resp.Meta, nil
}

func localMeta(ctx context.Context, opts *options, contentType, id string) (models.Meta, error) {
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.New(level, "console")
	if err != nil {
		return models.Meta{}, err
	}
	defer func() { _ = log.Sync() }()

	client := &http.Client{Timeout: 15 * time.Second}
	e := enrich.New(
		scraper.NewCinemeta("", "", client),
		scraper.NewGoogleSearch("", "", "", client),
		scraper.NewPosterFetcher(client, 0),
		enrich.WithLogger(log),
	)
	m, ok := e.Enrich(ctx, contentType, id)
	if !ok {
		return models.Meta{}, fmt.Errorf("no record for %s %s", contentType, id)
	}
	return m, nil
}

// CatalogURL builds the addon catalog URL for req.
func CatalogURL(baseURL string, req models.CatalogRequest) string {
	var extra []string
	if req.Genre != "" {
		extra = append(extra, "genre="+url.QueryEscape(req.Genre))
	}
	if req.Search != "" {
		extra = append(extra, "search="+url.QueryEscape(req.Search))
	}
	if req.Skip > 0 {
		extra = append(extra, "skip="+strconv.Itoa(req.Skip))
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/catalog/" + url.PathEscape(req.Type) + "/" + string(req.Kind)
	if len(extra) > 0 {
		endpoint += "/" + strings.Join(extra, "&")
	}
	return endpoint + ".json"
}

var ratingRun = regexp.MustCompile(`(\([^()]+: [^()]+\) ?)+$`)

// ratingSuffix returns the trailing "(source: score) ..." run of a description.
func ratingSuffix(description string) string {
	return strings.TrimSpace(ratingRun.FindString(description))
}

func writePoster(ctx context.Context, ref, path string) error {
	if ref == "" {
		return errors.New("record has no poster")
	}
	data, err := scraper.NewPosterFetcher(nil, 0).Fetch(ctx, ref)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s failed: %s", endpoint, strings.TrimSpace(string(data)))
	}
	return json.Unmarshal(data, out)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
