package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simplemailer/simplemailer/internal/config"
	"github.com/simplemailer/simplemailer/internal/database"
	"github.com/simplemailer/simplemailer/internal/email"
	"github.com/simplemailer/simplemailer/internal/handler"
	"github.com/simplemailer/simplemailer/internal/logger"
	"github.com/simplemailer/simplemailer/internal/middleware"
	"github.com/simplemailer/simplemailer/internal/repository"
	"github.com/simplemailer/simplemailer/internal/router"
	"github.com/simplemailer/simplemailer/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().
		Str("version", "0.1.0").
		Str("store", cfg.Store.Driver).
		Str("provider", cfg.Email.Provider).
		Msg("starting Simple Mailer")

	// Recipient store
	var (
		db    *database.Postgres
		store service.RecipientStore
		audit service.AuditRecorder
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		log.Info().Msg("connected to PostgreSQL")

		store = repository.NewRecipientRepository(db)
		audit = repository.NewAuditRepository(db)
	case "memory":
		store = repository.NewMemoryRecipientRepository()
		log.Warn().Msg("using in-memory recipient store; data is lost on restart")
	}

	// Dispatch run tracking
	var (
		rdb       *database.Redis
		runs      handler.RunStore
		observers = []service.DispatchObserver{service.NewLogObserver(log)}
	)
	if cfg.Redis.Enabled {
		rdb, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("connected to Redis")

		recorder := service.NewRedisRunRecorder(rdb, cfg.Redis.RunTTL, log)
		observers = append(observers, recorder)
		runs = recorder
	}

	// The transport is built on first use so a bad mail config does not
	// stop the directory API from serving.
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	transport := email.NewLazyTransport(email.NewFactory(rootCtx, cfg))

	// Initialize services
	directorySvc := service.NewDirectoryService(store, audit, cfg, log)
	dispatchSvc := service.NewDispatchService(transport, cfg, log)
	bulkSvc := service.NewBulkSendService(directorySvc, dispatchSvc, cfg, log, observers...)
	unsubscribeSvc := service.NewUnsubscribeService(directorySvc, audit, log)

	// Initialize handlers
	h := handler.New(db, rdb, log, cfg, directorySvc, dispatchSvc, bulkSvc, unsubscribeSvc, runs)

	// Initialize middleware
	mw := middleware.New(log, cfg)

	// Set up router
	r := router.New(h, mw)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Background dispatch runs are not awaited
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
