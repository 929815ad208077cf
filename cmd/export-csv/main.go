// export-csv dumps the metadata cache to CSV, one row per cached record.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"ratingposter/pkg/database"
	"ratingposter/pkg/models"
)

func main() {
	var (
		dbPath  = flag.String("db", "", "cache database (default RATINGPOSTER_DB_PATH or ~/.ratingposter/cache.db)")
		outPath = flag.String("out", "data/meta_cache.csv", "output CSV path")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := database.DefaultConfig()
	if *dbPath != "" {
		cfg.Path = *dbPath
	}
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("create %s: %v", *outPath, err)
	}
	defer f.Close()

	n, err := exportCache(ctx, db, f)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	log.Printf("✅ exported %d cached records to %s", n, *outPath)
}

func exportCache(ctx context.Context, db *sql.DB, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"type", "id", "name", "poster", "fetched_at"}); err != nil {
		return 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT content_type, id, body, fetched_at
		FROM meta_cache
		ORDER BY content_type, id
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			contentType string
			id          string
			body        string
			fetchedAt   int64
		)
		if err := rows.Scan(&contentType, &id, &body, &fetchedAt); err != nil {
			return n, err
		}

		// unreadable bodies still get a row so they can be spotted
		var m models.Meta
		_ = json.Unmarshal([]byte(body), &m)

		if err := w.Write([]string{
			contentType,
			id,
			m.Name,
			m.Poster,
			time.Unix(fetchedAt, 0).UTC().Format(time.RFC3339),
		}); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	w.Flush()
	return n, w.Error()
}
