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
	"storefront/internal/discovery"
	"storefront/internal/gateway"
	"storefront/internal/httpx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", "gateway"))

	var consul *discovery.Consul
	if cfg.ConsulAddr != "" {
		consul, err = discovery.NewConsul(cfg.ConsulAddr, logger)
		if err != nil {
			logger.Warn("consul unavailable, static routing only", zap.Error(err))
			consul = nil
		}
	}

	static := map[string]string{
		"users":     cfg.UsersURL,
		"orders":    cfg.OrdersURL,
		"inventory": cfg.InventoryURL,
	}
	gw := gateway.New(consul, static, logger)

	stop := make(chan struct{})
	go gw.Watch(stop, cfg.RefreshInterval)

	router := httpx.NewRouter(logger)
	gw.Register(router)

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
	close(stop)

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
}
