package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/raktsetu/blood-request-service/internal/adapters/messaging"
	"github.com/raktsetu/blood-request-service/internal/adapters/outbox"
	"github.com/raktsetu/blood-request-service/internal/adapters/repository"
	"github.com/raktsetu/blood-request-service/internal/config"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
	"github.com/raktsetu/blood-request-service/internal/metrics"
)

type relayStatus struct {
	Status    string `json:"status"`
	Component string `json:"component"`
}

func main() {
	cfg := config.LoadRelayConfig()
	logger := config.NewLogger(cfg.LogLevel).With("component", "outbox-relay")

	if err := run(cfg, logger); err != nil {
		logger.Error("relay stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(cfg *config.RelayConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var outlets []ports.NotificationPublisher

	broker, err := messaging.NewRabbitMQBroker(cfg.RabbitMQURL, cfg.NotificationQueueName)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer broker.Close()
	outlets = append(outlets, broker)
	logger.Info("connected to RabbitMQ", "queue", cfg.NotificationQueueName)

	if cfg.TelegramBotToken != "" {
		tg, err := messaging.NewTelegramBroadcaster(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			return fmt.Errorf("initialise Telegram broadcaster: %w", err)
		}
		outlets = append(outlets, tg)
		logger.Info("telegram broadcast enabled", "chat_id", cfg.TelegramChatID)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	relay := outbox.NewRelay(db, cfg.DatabaseURL, logger, m, outlets...)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, relay.IsHealthy())
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, relay.IsReady())
	})
	r.Handle("/metrics", promhttp.Handler())

	healthServer := &http.Server{
		Addr:              cfg.HealthAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting health server", "addr", cfg.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("starting event processing worker", "outlets", len(outlets))
		if err := relay.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func writeStatus(w http.ResponseWriter, up bool) {
	status, code := "UP", http.StatusOK
	if !up {
		status, code = "DOWN", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(relayStatus{Status: status, Component: "outbox-relay"})
}
