// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/challenge"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/config"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/database"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/document"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/handler"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/ledger"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/notify"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/observability"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/repository/memory"
	"github.com/Shivanand-hulikatti/gourmetgo-booking/internal/service"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gourmetgo-booking: %v\n", err)
		os.Exit(1)
	}
}

// stores groups the persistence backends chosen by STORE_DRIVER.
type stores struct {
	experiences service.ExperienceStore
	bookings    service.BookingStore
	users       service.UserStore
	capacity    ledger.Store
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Configuration, logging, tracing ───────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OtelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	// ── 2. Persistence ───────────────────────────────────────────────────
	st, closeStores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStores()

	challenges, closeChallenges, err := openChallengeStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeChallenges()

	notifier, closeNotifier := openNotifier(cfg, logger)
	defer closeNotifier()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	renderer := document.NewRenderer()
	delivery := service.NewDelivery(renderer, notifier, cfg.DeliveryTimeout, logger)
	bookingSvc := service.NewBookingService(
		st.experiences, st.bookings, st.users,
		ledger.New(st.capacity, logger),
		delivery, renderer,
		service.BookingOptions{ChefBookingsAnyChef: cfg.ChefBookingsAnyChef},
		logger,
	)
	experienceSvc := service.NewExperienceService(
		st.experiences, st.users, challenges, delivery, cfg.ChallengeTTL, logger,
	)

	router := handler.NewRouter(handler.RouterConfig{
		Logger:      logger,
		JWTSecret:   []byte(cfg.JWTSecret),
		Experiences: handler.NewExperienceHandler(experienceSvc, logger),
		Bookings:    handler.NewBookingHandler(bookingSvc, logger),
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (stores, func(), error) {
	if cfg.StoreDriver == "memory" {
		m := memory.New()
		logger.Warn("using in-memory store; data is lost on restart")
		return stores{
			experiences: m.Experiences(),
			bookings:    m.Bookings(),
			users:       m.Users(),
			capacity:    m,
		}, func() {}, nil
	}

	pool, err := database.NewPool(ctx, cfg.DB, logger)
	if err != nil {
		return stores{}, nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return stores{}, nil, fmt.Errorf("database: %w", err)
	}
	logger.Info("connected to PostgreSQL", zap.String("host", cfg.DB.Host), zap.String("db", cfg.DB.Name))
	return stores{
		experiences: repository.NewExperienceRepository(pool),
		bookings:    repository.NewBookingRepository(pool),
		users:       repository.NewUserRepository(pool),
		capacity:    repository.NewCapacityRepository(pool),
	}, pool.Close, nil
}

func openChallengeStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (challenge.Store, func(), error) {
	if cfg.ChallengeStore != "redis" {
		return challenge.NewMemoryStore(cfg.ChallengeTTL, cfg.ChallengeMaxEntries), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	return challenge.NewRedisStore(client, cfg.ChallengeTTL), func() { _ = client.Close() }, nil
}

func openNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, func()) {
	switch cfg.Notifier {
	case "smtp":
		return notify.NewSMTPNotifier(cfg.SMTP, logger), func() {}
	case "kafka":
		n := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), logger)
		return n, func() {
			if err := n.Close(); err != nil {
				logger.Warn("kafka writer close failed", zap.Error(err))
			}
		}
	}
	return notify.NewLogNotifier(logger), func() {}
}
