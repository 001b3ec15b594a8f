package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"example.com/fitnesstracker/internal/config"
	"example.com/fitnesstracker/internal/consumer"
	"example.com/fitnesstracker/internal/feed"
	"example.com/fitnesstracker/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := consumer.NewProjectionHandler(logger)

	var dlqProducer *feed.KafkaProducer
	if cfg.Consumer.DeadLetter {
		dlqProducer = feed.NewKafkaProducer(cfg.Feed.KafkaBrokers)
		defer dlqProducer.Close()
	}

	metricsSrv := &http.Server{Addr: cfg.Consumer.MetricsAddress, Handler: promhttp.Handler()}

	go func() {
		logger.Info("consumer metrics listening", slog.String("address", cfg.Consumer.MetricsAddress))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	var wg sync.WaitGroup
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for _, topic := range cfg.Consumer.Topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.Feed.KafkaBrokers,
			GroupID:         cfg.Consumer.GroupID,
			Topic:           topic,
			MinBytes:        1,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})

		topicLogger := logger.With(slog.String("topic", topic))
		opts := []consumer.Option{consumer.WithLogger(topicLogger)}
		if dlqProducer != nil {
			opts = append(opts, consumer.WithDeadLetter(dlqProducer, cfg.Consumer.MaxAttempts, cfg.Consumer.RetryBaseDelay))
		}
		proc := consumer.NewProcessor(reader, handler, opts...)

		wg.Add(1)
		go func(r *kafka.Reader) {
			defer wg.Done()
			defer r.Close()

			topicLogger.Info("consumer started", slog.String("group", cfg.Consumer.GroupID))
			if err := proc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				topicLogger.Error("consumer stopped", slog.Any("error", err))
			}
		}(reader)
	}

	<-stop
	logger.Info("consumer shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", slog.Any("error", err))
	}

	wg.Wait()
}
