package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wastetrack/internal/association"
	associationstore "wastetrack/internal/association/store"
	"wastetrack/internal/events"
	"wastetrack/internal/guard"
	"wastetrack/internal/jwttoken"
	"wastetrack/internal/platform/config"
	"wastetrack/internal/platform/httpserver"
	"wastetrack/internal/platform/logger"
	"wastetrack/internal/platform/metrics"
	"wastetrack/internal/platform/middleware"
	"wastetrack/internal/platform/postgres"
	platformredis "wastetrack/internal/platform/redis"
	pointmetrics "wastetrack/internal/point/metrics"
	pointservice "wastetrack/internal/point/service"
	pointstore "wastetrack/internal/point/store"
	projectcache "wastetrack/internal/project/cache"
	projectmetrics "wastetrack/internal/project/metrics"
	projectservice "wastetrack/internal/project/service"
	projectstore "wastetrack/internal/project/store"
	registrationmetrics "wastetrack/internal/registration/metrics"
	registrationservice "wastetrack/internal/registration/service"
	registrationstore "wastetrack/internal/registration/store"
	httptransport "wastetrack/internal/transport/http"
	"wastetrack/pkg/platform/tx"
)

// main wires stores, services, and the HTTP surface. Business logic lives in
// the internal service packages; this file only assembles them.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	// Stores: postgres when configured, in-memory otherwise.
	var db *sql.DB
	var runner tx.Runner
	var points pointstore.Store
	var projects projectstore.Store
	var registrations registrationstore.Store
	var links association.LinkStore

	if cfg.DatabaseURL != "" {
		var err error
		db, err = postgres.Open(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(db); err != nil {
			log.Error("schema migration failed", "error", err)
			os.Exit(1)
		}
		runner = tx.NewPostgresRunner(db)
		points = pointstore.NewPostgres(db)
		projects = projectstore.NewPostgres(db)
		registrations = registrationstore.NewPostgres(db)
		links = associationstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		runner = tx.NewMemoryRunner()
		points = pointstore.NewInMemory()
		projects = projectstore.NewInMemory()
		registrations = registrationstore.NewInMemory()
		links = associationstore.NewInMemory()
	}

	// Event sink: kafka when configured, postgres outbox next, memory last.
	var sink events.Sink
	switch {
	case len(cfg.Kafka.Brokers) > 0:
		kafkaSink, err := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	case db != nil:
		sink = events.NewPostgresSink(db)
	default:
		sink = events.NewMemorySink()
	}
	publisher := events.NewPublisher(sink, log)

	consistency := guard.New(points, projects)
	engine := association.NewEngine(registrations, links, log)

	pointSvc := pointservice.New(points, consistency, runner,
		pointservice.WithLogger(log),
		pointservice.WithEventPublisher(publisher),
		pointservice.WithMetrics(pointmetrics.New()),
	)

	projectOpts := []projectservice.Option{
		projectservice.WithLogger(log),
		projectservice.WithEventPublisher(publisher),
		projectservice.WithMetrics(projectmetrics.New()),
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		projectOpts = append(projectOpts, projectservice.WithCache(projectcache.NewRedis(redisClient.Client)))
	}
	projectSvc := projectservice.New(projects, consistency, engine, runner, projectOpts...)

	registrationSvc := registrationservice.New(registrations, projects, engine, consistency, runner,
		registrationservice.WithLogger(log),
		registrationservice.WithEventPublisher(publisher),
		registrationservice.WithMetrics(registrationmetrics.New()),
	)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Points:        httptransport.NewPointHandler(pointSvc, log),
		Projects:      httptransport.NewProjectHandler(projectSvc, log),
		Registrations: httptransport.NewRegistrationHandler(registrationSvc, log),
		Validator:     jwttoken.NewService(cfg.JWTSigningKey, "wastetrack"),
		Logger:        log,
		HTTPMetrics:   metrics.NewHTTP(),
		RateLimiter:   limiter,
		Timeout:       cfg.RequestTimeout,
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting wastetrack", "addr", cfg.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
	}

	if err := httpserver.Shutdown(srv, 10*time.Second); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
