package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/learnhub/internal/config"
	"github.com/Skotchmaster/learnhub/internal/httpserver"
	"github.com/Skotchmaster/learnhub/internal/repo"
	"github.com/Skotchmaster/learnhub/internal/search"
	"github.com/Skotchmaster/learnhub/internal/service"
	"github.com/Skotchmaster/learnhub/pkg/db"
	"github.com/Skotchmaster/learnhub/pkg/es"
	"github.com/Skotchmaster/learnhub/pkg/hash"
	"github.com/Skotchmaster/learnhub/pkg/logging"
	middleware "github.com/Skotchmaster/learnhub/pkg/middleware/auth"
	"github.com/Skotchmaster/learnhub/pkg/mykafka"
	"github.com/Skotchmaster/learnhub/pkg/ratelimit"
	"github.com/Skotchmaster/learnhub/pkg/tokens"
)

func main() {
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName, "env", cfg.AppEnv)
	slog.SetDefault(logger)

	ctx := context.Background()

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db_init_failed", "error", err)
		os.Exit(1)
	}
	store := repo.New(gdb)
	if err := store.AutoMigrate(ctx); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	var events mykafka.Publisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		prod, err := mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Error("kafka_init_failed", "error", err)
			os.Exit(1)
		}
		events = prod
	} else {
		logger.Info("KAFKA_BROKERS not set, events are dropped")
	}

	catalog := &service.CatalogService{Courses: store, Events: events}
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(ctx, es.Config{URL: cfg.ESURL, Username: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			logger.Warn("elasticsearch unavailable, search falls back to sql", "error", err)
		} else {
			catalog.Search = search.NewCourseIndex(esClient, search.DefaultIndex)
			go func() {
				if _, err := catalog.Reindex(logging.IntoContext(ctx, logger)); err != nil {
					logger.Warn("course_reindex_failed", "error", err)
				}
			}()
		}
	}

	tok := tokens.NewService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpire, cfg.JWTRefreshExpire)

	limits := ratelimit.NewMemoryStore()
	sweeper := ratelimit.NewSweeper(limits, cfg.RateSweepSpec, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error("rate_limit_sweeper_failed", "spec", cfg.RateSweepSpec, "error", err)
		os.Exit(1)
	}

	e := httpserver.NewServer(logger, cfg.FrontendURL)
	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{Svc: &service.AuthService{
			Users:            store,
			Hasher:           hash.NewHasher(cfg.BcryptCost),
			Tokens:           tok,
			Events:           events,
			AllowAdminSignup: cfg.AllowAdminSignup,
		}},
		Catalog: &httpserver.CatalogHTTP{Svc: catalog},
		Enrollment: &httpserver.EnrollmentHTTP{Svc: &service.EnrollmentService{
			Enrollments: store,
			Courses:     store,
			Events:      events,
		}},
		Health:        &httpserver.HealthHTTP{DB: gdb},
		Authenticator: middleware.NewAuthenticator(tok),
		AuthLimiter:   ratelimit.NewLimiter(limits, cfg.AuthPolicy()),
		APILimiter:    ratelimit.NewLimiter(limits, cfg.APIPolicy()),
	})

	go func() {
		logger.Info("http server starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	sweeper.Stop(shutdownCtx)
	if err := events.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}

	logger.Info("shutdown complete")
}
