// Command seed_history bulk-loads a historical AIS position file
// straight into vessel_positions via internal/storage/pgbulk, bypassing
// the Rule Engine and Cooldown Gate entirely. Use it to prime a
// vessel's track with history before a replay session starts, not as a
// substitute for the per-point transactional path that actually runs
// detection (internal/storage.Repository.PersistPoint) — this script
// never touches vessels_latest, alerts, or alert_cooldowns.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/seawatch/trackwatch/internal/loader"
	"github.com/seawatch/trackwatch/internal/storage/pgbulk"
)

func main() {
	path := flag.String("path", "", "CSV/.dat file to load (supports .gz/.zst)")
	dsn := flag.String("dsn", "", "Postgres DSN override (defaults to env-derived DSN)")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: seed_history -path <file> [-dsn <postgres-dsn>]")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found — using system environment variables")
	}

	connStr := *dsn
	if connStr == "" {
		connStr = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			seedGetEnv("DB_USER", "trackwatch"),
			seedGetEnv("DB_PASSWORD", "trackwatch"),
			seedGetEnv("DB_HOST", "localhost"),
			seedGetEnv("DB_PORT", "5432"),
			seedGetEnv("DB_NAME", "trackwatch"),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Println("Loading", *path)
	ld, err := loader.Open(*path)
	if err != nil {
		log.Fatalf("opening source: %v", err)
	}
	defer ld.Close()

	points, err := ld.LoadAll()
	if err != nil {
		log.Fatalf("reading points: %v", err)
	}
	fmt.Printf("✓ parsed %d points\n", len(points))

	importer, err := pgbulk.Open(ctx, connStr)
	if err != nil {
		log.Fatalf("connecting to postgres: %v", err)
	}
	defer importer.Close()

	n, err := importer.ImportPositions(ctx, points)
	if err != nil {
		log.Fatalf("bulk import: %v", err)
	}
	fmt.Printf("✅ copied %d rows into vessel_positions\n", n)
}

func seedGetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
