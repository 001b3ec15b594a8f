package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/fitnesstracker/internal/api"
	"example.com/fitnesstracker/internal/auth"
	"example.com/fitnesstracker/internal/config"
	"example.com/fitnesstracker/internal/domain"
	"example.com/fitnesstracker/internal/feed"
	"example.com/fitnesstracker/internal/logging"
	"example.com/fitnesstracker/internal/session"
	httptransport "example.com/fitnesstracker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	var publisher domain.ChangePublisher = domain.NoopPublisher{}
	if cfg.Feed.Enabled {
		producer := feed.NewKafkaProducer(cfg.Feed.KafkaBrokers)
		defer producer.Close()

		opts := []feed.PublisherOption{feed.WithTimeout(cfg.Feed.PublishTimeout)}
		if cfg.Feed.SchemaRegistryURL != "" {
			opts = append(opts, feed.WithSchemaRegistry(feed.NewSchemaRegistryClient(cfg.Feed.SchemaRegistryURL, cfg.Feed.PublishTimeout)))
		}
		publisher = feed.NewPublisher(producer, cfg.Feed.Topic, opts...)
		logger.Info("ledger change feed enabled", slog.String("topic", cfg.Feed.Topic), slog.Any("brokers", cfg.Feed.KafkaBrokers))
	}

	store := session.NewInMemoryStore()
	service := domain.NewService(store, publisher, domain.WithLogger(logger))

	handler := api.NewHandler(service, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTP.Address,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}, httptransport.Chain(mux,
		httptransport.RequestLogger(logger),
		httptransport.CORS(cfg.HTTP.CORSOrigin),
		authMiddleware.Wrap,
	))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("fitness-tracker api listening", slog.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-shutdownCh

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
	logger.Info("fitness-tracker api stopped", slog.Int("sessions", store.Len()))
}
