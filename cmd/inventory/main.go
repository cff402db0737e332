package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/httpx"
	"storefront/internal/inventory"
	"storefront/internal/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", "inventory"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// POSTGRES_DSN=memory runs against the in-memory store, no database.
	var store inventory.Store
	if cfg.PostgresDSN != "memory" {
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := inventory.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		store = inventory.NewRepo(db)
	} else {
		store = inventory.NewMemStore()
	}

	router := httpx.NewRouter(logger)
	h := &inventory.Handler{Store: store, Log: logger}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
}
