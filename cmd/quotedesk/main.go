package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quotedesk/quotedesk/internal/alerting"
	"github.com/quotedesk/quotedesk/internal/api"
	"github.com/quotedesk/quotedesk/internal/config"
	"github.com/quotedesk/quotedesk/internal/database"
	"github.com/quotedesk/quotedesk/internal/httpclient"
	"github.com/quotedesk/quotedesk/internal/middleware"
	"github.com/quotedesk/quotedesk/internal/quote"
	"github.com/quotedesk/quotedesk/internal/storage"
)

func main() {
	log.Info().Msg("Starting quotedesk api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// open-alert cache; the store stays the source of truth when Redis is down
	var alertCache alerting.OpenAlertCache = alerting.NoopCache{}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error().Err(err).Msg("redis unreachable; open alerts served from database")
	} else {
		alertCache = alerting.NewRedisCache(rdb)
	}

	alertStore := alerting.NewPgStore(db)
	if err := alerting.BootstrapRules(ctx, alertStore, cfg.Alerting.RulesFile); err != nil {
		log.Error().Err(err).Msg("bootstrap alert rules failed")
	}
	eval := alerting.NewEvaluator(alertStore, alerting.NewNotifier(nil), alertCache)
	go alerting.StartScheduler(ctx, alerting.Deps{
		Eval:     eval,
		Interval: config.ParseDuration(cfg.Alerting.CheckInterval, 0),
	})

	// pull samples from a remote metrics API when one is configured
	if cfg.Client.BaseURL != "" {
		client := httpclient.New(httpclient.Options{
			BaseURL:       cfg.Client.BaseURL,
			HTTPClient:    &http.Client{Timeout: config.ParseDuration(cfg.Client.Timeout, 30*time.Second)},
			RetryAttempts: cfg.Client.RetryAttempts,
			RetryDelay:    config.ParseDuration(cfg.Client.RetryDelay, time.Second),
			CacheTTL:      config.ParseDuration(cfg.Client.CacheTTL, 5*time.Minute),
		})
		go alerting.StartMetricPoller(ctx, alerting.PollerDeps{
			Client:   client,
			Store:    alertStore,
			Resource: cfg.Client.MetricsResource,
			Interval: config.ParseDuration(cfg.Alerting.CheckInterval, 0),
		})
	}

	uploads, err := storage.NewService(cfg.Storage.BaseDir, cfg.Storage.BaseURL,
		cfg.Storage.PublicRoute, cfg.Storage.MaxSizeMB*1024*1024)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init upload storage")
	}

	alloc := quote.NewAllocator(quote.NewPgSequenceStore(db))

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	api.Register(router, &api.Deps{
		Quotes:      quote.NewRepo(db, alloc),
		Alloc:       alloc,
		Uploads:     uploads,
		Checker:     eval,
		AlertStore:  alertStore,
		AlertCache:  alertCache,
		ExportToken: cfg.Auth.ExportToken,
	})
	router.Static(uploads.PublicRoute(), uploads.BaseDir())

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start quotedesk api server failed.")
	}
	log.Info().Msg("quotedesk api server exit...")
}
