package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ratingposter/internal/addon"
	"ratingposter/internal/enrich"
	"ratingposter/internal/logging"
	"ratingposter/internal/metacache"
	"ratingposter/internal/poster"
	"ratingposter/internal/scraper"
	"ratingposter/pkg/database"
	"ratingposter/pkg/utils"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := utils.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	cinemeta := scraper.NewCinemeta(cfg.CinemetaMetaURL, cfg.CinemetaCatalogURL, client)

	var (
		metas enrich.MetaSource = cinemeta
		db    *sql.DB
	)
	if cfg.MetaCacheTTL > 0 {
		dbCfg := database.DefaultConfig()
		if cfg.DBPath != "" {
			dbCfg.Path = cfg.DBPath
		}
		db, err = database.Open(dbCfg)
		if err != nil {
			return fmt.Errorf("open meta cache: %w", err)
		}
		defer db.Close()

		cache := metacache.New(db, cinemeta, cfg.MetaCacheTTL, log.Named("metacache"))
		if n, err := cache.Purge(context.Background()); err != nil {
			log.Warn("meta cache purge failed", zap.Error(err))
		} else {
			log.Info("meta cache ready", zap.String("path", dbCfg.Path), zap.Int64("purged", n))
		}
		metas = cache
	}

	enricher := enrich.New(
		metas,
		scraper.NewGoogleSearch(cfg.SearchURL, cfg.RatingSelector, cfg.UserAgent, client),
		scraper.NewPosterFetcher(client, cfg.PosterMaxBytes),
		enrich.WithCompositor(poster.New(poster.WithJPEGQuality(cfg.JPEGQuality), poster.WithLogger(log.Named("poster")))),
		enrich.WithLogger(log.Named("enrich")),
	)
	batch := enrich.NewBatch(cinemeta, enricher, cfg.BatchConcurrency, log.Named("batch"))

	handler := addon.NewHandler(addon.DefaultManifest(version), enricher, batch, log)
	if db != nil {
		handler.Ping = db.PingContext
	}
	router := addon.NewRouter(handler, log)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("addon listening",
			zap.String("manifest", "http://localhost:"+cfg.Port+"/manifest.json"),
			zap.String("version", version))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	log.Info("server stopped")
	return nil
}
