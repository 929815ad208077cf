package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "RATINGPOSTER_"

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	CinemetaMetaURL    string
	CinemetaCatalogURL string
	SearchURL          string
	RatingSelector     string
	UserAgent          string

	HTTPTimeout      time.Duration
	PosterMaxBytes   int64
	JPEGQuality      int
	BatchConcurrency int

	MetaCacheTTL time.Duration // 0 disables the cache
	DBPath       string
}

// Load reads the environment after merging a .env file from the working
// directory, if there is one. Variables already set win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(envPrefix + key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Port:               strings.TrimSpace(getenv("PORT")),
		LogLevel:           get("LOG_LEVEL", "info"),
		LogFormat:          get("LOG_FORMAT", "json"),
		CinemetaMetaURL:    get("CINEMETA_META_URL", ""),
		CinemetaCatalogURL: get("CINEMETA_CATALOG_URL", ""),
		SearchURL:          get("SEARCH_URL", ""),
		RatingSelector:     get("RATING_SELECTOR", ""),
		UserAgent:          get("USER_AGENT", ""),
		DBPath:             get("DB_PATH", ""),
	}
	if cfg.Port == "" {
		cfg.Port = "7000"
	}

	var err error
	if cfg.HTTPTimeout, err = parseDuration(get("HTTP_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("%sHTTP_TIMEOUT: %w", envPrefix, err)
	}
	if cfg.MetaCacheTTL, err = parseDuration(get("META_CACHE_TTL", "0")); err != nil {
		return Config{}, fmt.Errorf("%sMETA_CACHE_TTL: %w", envPrefix, err)
	}
	maxBytes, err := parseInt(get("POSTER_MAX_BYTES", "10485760"))
	if err != nil {
		return Config{}, fmt.Errorf("%sPOSTER_MAX_BYTES: %w", envPrefix, err)
	}
	cfg.PosterMaxBytes = int64(maxBytes)
	if cfg.JPEGQuality, err = parseInt(get("JPEG_QUALITY", "90")); err != nil || cfg.JPEGQuality < 1 || cfg.JPEGQuality > 100 {
		return Config{}, fmt.Errorf("%sJPEG_QUALITY: must be 1-100", envPrefix)
	}
	if cfg.BatchConcurrency, err = parseInt(get("BATCH_CONCURRENCY", "0")); err != nil {
		return Config{}, fmt.Errorf("%sBATCH_CONCURRENCY: %w", envPrefix, err)
	}
	return cfg, nil
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative value %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative value %s", s)
	}
	return d, nil
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}
