// Command trackwatchd wires Config → Logger → Postgres → Redis →
// Cooldown Gate → Storage Repository → Rule Engine → Fan-out Bus →
// Replay Driver → HTTP control surface, then serves until signaled to
// stop. Grounded on the teacher's construction order (the services it
// wires in internal/ imply this same dependency chain, even though the
// teacher repo itself has no single cmd/ entrypoint of its own).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/seawatch/trackwatch/internal/alerts"
	"github.com/seawatch/trackwatch/internal/auth"
	"github.com/seawatch/trackwatch/internal/bus"
	"github.com/seawatch/trackwatch/internal/config"
	"github.com/seawatch/trackwatch/internal/cooldown"
	"github.com/seawatch/trackwatch/internal/logging"
	"github.com/seawatch/trackwatch/internal/replay"
	"github.com/seawatch/trackwatch/internal/rules"
	"github.com/seawatch/trackwatch/internal/storage"
	httptransport "github.com/seawatch/trackwatch/internal/transport/http"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: "info", Format: "json", Output: os.Stderr})
	log := logging.Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to postgres")
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrating schema")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, cooldown gate will read through to postgres")
			redisClient = nil
		}
	}

	gate := cooldown.New(db, redisClient, cfg.AlertCooldownSec)
	repo := storage.New(db, gate, cfg.OutOfOrderPolicy)
	alertRepo := alerts.New(db)
	engine := rules.New(cfg)
	eventBus := bus.New(cfg.SubscriberMailboxSize)
	driver := replay.New(cfg, eventBus, repo, gate, engine)
	authr := auth.New(cfg)

	go runCooldownCleanup(ctx, gate, cfg)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: httptransport.NewServer(authr, driver, alertRepo, eventBus),
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("control surface listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	driver.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown did not complete cleanly")
	}
	if redisClient != nil {
		redisClient.Close()
	}
}

// runCooldownCleanup periodically deletes cooldown rows whose
// last_alert_timestamp is older than cfg.CooldownMaxAge, per spec
// §4.5's permitted (not mandatory) cleanup task.
func runCooldownCleanup(ctx context.Context, gate *cooldown.Gate, cfg *config.Config) {
	maxAge, err := time.ParseDuration(cfg.CooldownMaxAge)
	if err != nil {
		maxAge = 24 * time.Hour
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	log := logging.WithComponent("cooldown-cleanup")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-maxAge)
			n, err := gate.Cleanup(ctx, cutoff)
			if err != nil {
				log.Warn().Err(err).Msg("cooldown cleanup failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("rows_deleted", n).Msg("cooldown cleanup ran")
			}
		}
	}
}
