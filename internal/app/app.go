// Package app wires repositories, caches, services and transport into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"surveypulse/internal/audit"
	"surveypulse/internal/cache"
	"surveypulse/internal/config"
	"surveypulse/internal/evaluation"
	"surveypulse/internal/postback"
	"surveypulse/internal/repository"
	"surveypulse/internal/service"
	"surveypulse/internal/transport/rest"
	"surveypulse/internal/transport/ws"
)

// Repos groups the document store repositories
type Repos struct {
	Surveys   repository.SurveyRepo
	Users     repository.UserRepo
	Criteria  repository.CriteriaRepo
	Configs   repository.SurveyConfigRepo
	Settings  repository.SettingsRepo
	Partners  repository.PartnerRepo
	Mappings  repository.MappingRepo
	Offers    repository.OfferRepo
	Shares    repository.ShareRepo
	Audit     repository.AuditRepo
	Responses repository.ResponseRepo
}

// NewRepos creates every repository on db
func NewRepos(db *mongo.Database, cfg *config.Config) *Repos {
	return &Repos{
		Surveys:   repository.NewSurveyRepo(db),
		Users:     repository.NewUserRepo(db),
		Criteria:  repository.NewCriteriaRepo(db),
		Configs:   repository.NewSurveyConfigRepo(db),
		Settings:  repository.NewSettingsRepo(db, cfg.Evaluation.MergeEnabled),
		Partners:  repository.NewPartnerRepo(db),
		Mappings:  repository.NewMappingRepo(db),
		Offers:    repository.NewOfferRepo(db),
		Shares:    repository.NewShareRepo(db),
		Audit:     repository.NewAuditRepo(db),
		Responses: repository.NewResponseRepo(db),
	}
}

// App owns the long-lived connections and background workers
type App struct {
	mongo *mongo.Client
	redis *redis.Client
	Repos *Repos

	l1    *cache.MemoryCache
	sink  *audit.AsyncSink
	hub   *ws.Hub
	route http.Handler
}

// New connects to Mongo and Redis and builds the full component graph.
// Background workers are started; Close stops them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	mongoClient, err := repository.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	logger.Info("connected to mongodb", "database", cfg.Mongo.Database)

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Address(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Redis only backs caches and counters; run without it.
		logger.Warn("redis unavailable at start-up, caches will degrade", "addr", cfg.Redis.Address(), "error", err)
	} else {
		logger.Info("connected to redis", "addr", cfg.Redis.Address())
	}

	db := mongoClient.Database(cfg.Mongo.Database)
	repository.EnsureIndexes(ctx, db, logger)
	repos := NewRepos(db, cfg)

	l1, err := cache.NewMemoryCache(cfg.Evaluation.CacheCapacity, cfg.Evaluation.CacheTTL)
	if err != nil {
		mongoClient.Disconnect(ctx)
		rdb.Close()
		return nil, fmt.Errorf("build criteria memory cache: %w", err)
	}
	criteriaStore := cache.NewCachedCriteriaStore(
		repos.Criteria, l1, cache.NewCriteriaCache(rdb, cfg.Redis.CriteriaTTL), logger.With("component", "criteria_cache"),
	)
	stats := cache.NewDeliveryStatsCache(rdb, cfg.Redis.StatsTTL)

	hub := ws.NewHub(logger.With("component", "ws"))
	sink := audit.NewAsyncSink(repos.Audit, stats, hub, cfg.Postback.AuditBuffer, logger.With("component", "audit"))
	sink.Start()

	resolver := evaluation.NewResolver(
		criteriaStore, repos.Surveys, repos.Configs, cfg.Evaluation.DefaultCriteriaSetName, logger.With("component", "resolver"),
	)
	engine := evaluation.NewEngine(resolver, logger.With("component", "evaluation"))

	dispatcher := postback.NewDispatcher(
		repos.Surveys, repos.Users, repos.Partners, repos.Mappings,
		postback.NewHTTPSender(cfg.Postback), sink, cfg.Postback, logger.With("component", "dispatcher"),
	)
	receiver := postback.NewReceiver(repos.Shares, sink, logger.With("component", "receiver"))

	authSvc := service.NewAuthService(cfg.Auth)
	redirectSvc := service.NewRedirectService(repos.Configs, repos.Offers, logger.With("component", "redirect"))
	submissionSvc := service.NewSubmissionService(
		repos.Surveys, repos.Responses, repos.Configs, repos.Settings, repos.Offers,
		engine, redirectSvc, dispatcher, cfg.Postback, logger.With("component", "submission"),
	)

	router := rest.NewRouter(&rest.Container{
		Server:            cfg.Server,
		Logger:            logger,
		AuthService:       authSvc,
		SurveyService:     service.NewSurveyService(repos.Surveys, repos.Configs, repos.Criteria, criteriaStore),
		SubmissionService: submissionSvc,
		ShareService:      service.NewShareService(repos.Shares, cfg.Server.PublicBaseURL),
		AdminService:      service.NewAdminService(repos.Settings, repos.Audit, stats, logger.With("component", "admin")),
		Receiver:          receiver,
		WSHub:             hub,
		HealthChecks: map[string]rest.HealthCheck{
			"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	})

	return &App{
		mongo: mongoClient,
		redis: rdb,
		Repos: repos,
		l1:    l1,
		sink:  sink,
		hub:   hub,
		route: router,
	}, nil
}

// Handler is the HTTP entry point
func (a *App) Handler() http.Handler {
	return a.route
}

// Close flushes the audit log and releases every connection
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.sink.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush audit log: %w", err))
	}
	a.hub.Stop()
	a.l1.Close()
	if err := a.redis.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	if err := a.mongo.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("disconnect mongo: %w", err))
	}
	return errors.Join(errs...)
}
