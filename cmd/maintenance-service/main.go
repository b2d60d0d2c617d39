package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/frioserv/maintenance-service/internal/api"
	"github.com/frioserv/maintenance-service/internal/api/middleware"
	"github.com/frioserv/maintenance-service/internal/cache"
	"github.com/frioserv/maintenance-service/internal/repository"
	"github.com/frioserv/maintenance-service/internal/service"
	"github.com/frioserv/maintenance-service/pkg/db"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := db.LoadPostgresConfig()
	if err != nil {
		logger.Fatal("db config", zap.Error(err))
	}

	conn, err := db.NewPostgresConnection(cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()

	svc, err := service.NewBookingService(service.Deps{
		Tx:        repository.NewRunner(conn),
		Units:     repository.NewUnitRepo(conn),
		Orders:    repository.NewOrderRepo(conn),
		Rules:     repository.NewPricingRuleRepo(conn),
		Blackouts: repository.NewBlackoutRepo(conn),
		Clients:   repository.NewClientRepo(conn),
		Loyalty:   repository.NewLoyaltyRepo(conn),
		RuleCache: cache.NewRuleCache(5*time.Minute, time.Now),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("wire booking service", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Mount("/", api.NewRouter(svc))

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	logger.Info("starting maintenance-service", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	logger.Info("server stopped")
}
