package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/api"
	"github.com/your-username/pihole-log-viewer/internal/cache"
	"github.com/your-username/pihole-log-viewer/internal/config"
	"github.com/your-username/pihole-log-viewer/internal/database"
	"github.com/your-username/pihole-log-viewer/internal/ingestion"
	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/monitoring"
	"github.com/your-username/pihole-log-viewer/internal/parsing"
	"github.com/your-username/pihole-log-viewer/internal/settings"
	"github.com/your-username/pihole-log-viewer/internal/storage"
	"github.com/your-username/pihole-log-viewer/internal/websocket"
)

var version = "dev"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version).Msg("Starting DNS log viewer")

	cfg := config.Load()
	loc := cfg.Server.Timezone

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	settingsStore := settings.NewStore(cfg.Database.SettingsFile)
	if _, err := settingsStore.Load(); err != nil {
		log.Warn().Err(err).Str("path", settingsStore.Path()).Msg("Settings unreadable, using defaults")
	}

	metrics := monitoring.NewMetrics()
	health := monitoring.NewHealthMonitor(version)
	health.RegisterChecker(monitoring.NewDatabaseChecker(cfg.Database.Path, db.Health, db.Count))

	// Result cache, shared through redis when configured
	var backend cache.Cache
	if cfg.Cache.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.Cache.RedisURL, "dnslog:")
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid redis cache URL")
		}
		defer rc.Close()
		health.RegisterChecker(monitoring.NewPingChecker("cache", rc.Ping))
		backend = rc
	} else {
		mc := cache.NewMemoryCache(1000, time.Minute)
		defer mc.Close()
		backend = mc
	}
	queryCache := cache.NewQueryCache(backend, cfg.Cache.TTL)
	metrics.Gauge("cache_hit_rate", "Share of cached query results served since the last import", func() float64 {
		return queryCache.Stats().HitRate
	})

	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	metrics.Gauge("websocket_clients", "Connected websocket clients", func() float64 {
		return float64(wsHub.GetConnectedClients())
	})

	importerOpts := []ingestion.Option{
		ingestion.WithInvalidator(queryCache),
		ingestion.WithBroadcaster(wsHub),
		ingestion.WithRecorder(metrics),
	}
	if cfg.ClickHouse.Addr != "" {
		archive, err := storage.Open(ctx, cfg.ClickHouse, storage.DefaultConfig())
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.ClickHouse.Addr).Msg("ClickHouse archive unavailable")
		} else {
			defer archive.Close()
			health.RegisterChecker(monitoring.NewPingChecker("archive", archive.Health))
			importerOpts = append(importerOpts, ingestion.WithArchive(archive))
		}
	}

	// Import pipeline
	var updater api.Updater = disabledUpdater{}
	source, err := ingestion.NewSSHSource(cfg.Pihole, cfg.Import.Source)
	if err != nil {
		log.Warn().Err(err).Msg("Import disabled, tailing the database for rows written elsewhere")
		go websocket.NewLogTailer(db, wsHub).Start(ctx)
	} else {
		parsers := parsing.NewManager(parsing.NewFTLParser())
		if cfg.Import.Source == config.SourceLog {
			parsers = parsing.NewManager(parsing.NewDnsmasqParser(loc))
		}
		importer := ingestion.NewImporter(db, source, parsers, settingsStore, loc, importerOpts...)
		scheduler := ingestion.NewScheduler(importer, cfg.Import.Interval)
		scheduler.Start(ctx)
		defer scheduler.Stop()

		var maxAge time.Duration
		if cfg.Import.Interval > 0 {
			maxAge = 3 * cfg.Import.Interval
		}
		health.RegisterChecker(monitoring.NewImportChecker(scheduler.LastUpdate, maxAge))
		updater = scheduler
		log.Info().Str("source", cfg.Import.Source).Str("host", cfg.Pihole.Host).Dur("interval", cfg.Import.Interval).Msg("Import configured")
	}

	alerts := monitoring.NewAlertManager(db, settingsStore, monitoring.NewTelegram(cfg.Telegram.APIURL), wsHub, metrics)
	alerts.Start(ctx, cfg.Alerts.Interval)

	server := api.NewServer(api.Deps{
		Store:       db,
		Settings:    settingsStore,
		Updater:     updater,
		Alerts:      alerts,
		Cache:       queryCache,
		Hub:         wsHub,
		Metrics:     metrics,
		Health:      health,
		Location:    loc,
		JWTSecret:   cfg.JWT.Secret,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET not set, API is unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
		close(done)
	}()

	log.Info().Str("port", cfg.Server.Port).Str("timezone", loc.String()).Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	<-done
	log.Info().Msg("Server stopped")
}

// disabledUpdater answers import requests when no source is configured
type disabledUpdater struct{}

func (disabledUpdater) RunNow(context.Context) (models.ImportResult, error) {
	return models.ImportResult{}, ingestion.ErrNoSource
}

func (disabledUpdater) LastUpdate() models.LastUpdate { return models.LastUpdate{} }
