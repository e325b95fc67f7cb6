package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/raktsetu/blood-request-service/internal/adapters/cache"
	"github.com/raktsetu/blood-request-service/internal/adapters/handler"
	"github.com/raktsetu/blood-request-service/internal/adapters/messaging"
	"github.com/raktsetu/blood-request-service/internal/adapters/middleware"
	"github.com/raktsetu/blood-request-service/internal/adapters/outbox"
	"github.com/raktsetu/blood-request-service/internal/adapters/repository"
	"github.com/raktsetu/blood-request-service/internal/config"
	"github.com/raktsetu/blood-request-service/internal/core/ports"
	"github.com/raktsetu/blood-request-service/internal/core/services"
	"github.com/raktsetu/blood-request-service/internal/metrics"
)

// storage is the set of adapters chosen by STORAGE_DRIVER.
type storage struct {
	users       ports.UserRepository
	requests    ports.RequestRepository
	ledger      ports.DonationLedger
	sink        ports.NotificationSink
	revocations ports.TokenRevocationStore
	deps        map[string]handler.Pinger
	close       func()
}

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()
	if err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// run owns every resource it opens, so deferred cleanup completes before main exits.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialise %s storage: %w", cfg.StorageDriver, err)
	}
	defer store.close()

	m := metrics.New(prometheus.DefaultRegisterer)
	opts := []services.Option{
		services.WithLogger(logger),
		services.WithMetrics(m),
		services.WithLocation(cfg.Location),
	}

	authService := services.NewAuthService(store.users, store.revocations, cfg.JWTPrivateKey, cfg.TokenTTL, opts...)
	registrationService := services.NewRegistrationService(store.users, authService, opts...)
	requestService := services.NewRequestService(store.users, store.requests, store.sink, opts...)
	rewardService := services.NewRewardService(store.users, store.ledger, store.sink, opts...)
	donorService := services.NewDonorService(store.users, opts...)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:           handler.NewAuthHandler(authService, logger),
		Registration:   handler.NewRegistrationHandler(registrationService, logger),
		Requests:       handler.NewRequestHandler(requestService, logger),
		Donations:      handler.NewDonationHandler(rewardService, logger),
		Donors:         handler.NewDonorHandler(donorService, logger),
		Health:         handler.NewHealthHandler(store.deps, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(cfg.JWTPublicKey, store.revocations, logger),
		Metrics:        m,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &storage{
			users:       mem.Users(),
			requests:    mem.Requests(),
			ledger:      mem,
			sink:        messaging.NewLogSink(logger),
			revocations: cache.NewMemoryRevocationStore(),
			deps:        map[string]handler.Pinger{},
			close:       func() {},
		}, nil
	}

	db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The denylist fails closed, so the API still starts and reports not ready.
		logger.Warn("redis not reachable at startup", "addr", cfg.RedisAddress, "error", err)
	}

	cb := config.NewCircuitBreaker(config.BreakerPostgres)
	users := repository.NewUserRepository(db, cb)
	return &storage{
		users:       users,
		requests:    repository.NewRequestRepository(db, cb),
		ledger:      repository.NewDonationLedger(db, cb),
		sink:        outbox.NewWriter(db, cb),
		revocations: cache.NewRedisRevocationStore(redisClient),
		deps: map[string]handler.Pinger{
			"postgres": users,
			"redis":    handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
		close: func() {
			closeQuietly(logger, "redis", redisClient.Close)
			closeQuietly(logger, "postgres", db.Close)
		},
	}, nil
}

func closeQuietly(logger *slog.Logger, name string, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("close failed", "resource", name, "error", err)
	}
}
