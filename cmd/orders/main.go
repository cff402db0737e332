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
	"storefront/internal/identity"
	kafkax "storefront/internal/kafka"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/postgres"
	"storefront/internal/redisx"
	"storefront/internal/stock"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", cfg.ServiceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := orders.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024, logger)
	prod.Start(ctx)

	notifier := notify.New(logger, cfg.WebhookURLs, prod, cfg.ServiceName, 256)
	notifier.Start(ctx)

	svc := orders.NewService(
		orders.NewRepo(db),
		orders.NewEventRepo(db),
		identity.NewClient(cfg.UsersURL, cfg.ClientTimeout),
		stock.NewClient(cfg.InventoryURL, cfg.ClientTimeout),
		notifier,
		logger,
	)

	router := httpx.NewRouter(logger)
	oh := &httpx.OrdersHandler{Service: svc, Redis: rdb, Log: logger}
	oh.Register(router)

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

	notifier.Close()
	notifier.WaitClosed()
	prod.Close()
	cancel()
	prod.WaitClosed()
}
