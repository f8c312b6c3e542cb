package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/shop-api-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/shop-api-go/internal/logging"
)

type checkoutPublisher interface {
	cart.CheckoutPublisher
	Close() error
}

func main() {
	cfg := config.Load()

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	logger := logging.New("shop-api", level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.WithError(err).Fatal("run migrations")
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.WithError(err).Fatal("connect database")
	}
	defer pool.Close()

	sequenceRepo := events.NewSequenceRepository(pool)

	var rabbitConn *amqp.Connection
	var publisher checkoutPublisher
	if cfg.RabbitURL != "" {
		rabbitConn, err = events.Dial(cfg.RabbitURL)
		if err != nil {
			logger.WithError(err).Fatal("connect rabbitmq")
		}
		defer rabbitConn.Close()

		publisher, err = events.NewRabbitPublisher(rabbitConn, sequenceRepo, logger)
		if err != nil {
			logger.WithError(err).Fatal("create cart publisher")
		}
	} else {
		logger.Warn("RABBITMQ_URL not set, checkout events are logged only")
		publisher = events.NewLogPublisher(sequenceRepo, logger)
	}

	catalogSvc := catalog.NewService(catalog.NewPostgresRepository(pool))
	cartSvc := cart.NewService(cart.NewPostgresRepository(pool), publisher)

	router, err := httpapi.NewRouter(httpapi.Deps{
		Logger:  logger,
		Cfg:     cfg,
		Catalog: catalogSvc,
		Cart:    cartSvc,
		DB:      pool,
	})
	if err != nil {
		logger.WithError(err).Fatal("build router")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "app": cfg.AppName}).Info("shop-api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.WithError(err).Error("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown error")
	}
	if err := publisher.Close(); err != nil {
		logger.WithError(err).Warn("publisher close error")
	}
}
