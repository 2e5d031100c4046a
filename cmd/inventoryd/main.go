package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/sonic7adarsh/bharat-shop-sub006/internal/app"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/cache"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/clock"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/config"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/events"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/storage/postgres"
	"github.com/sonic7adarsh/bharat-shop-sub006/internal/sweeper"
	transporthttp "github.com/sonic7adarsh/bharat-shop-sub006/internal/transport/http"
	"github.com/sonic7adarsh/bharat-shop-sub006/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "inventoryd").Logger()

	cfg, warnings, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	for _, warning := range warnings {
		logger.Warn().Msg(warning)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	ledger := postgres.NewStockLedger(pool)
	store := postgres.NewReservationRepository(pool)

	svcOpts := []app.ReservationServiceOption{
		app.WithLogger(logger.With().Str("component", "reservation_service").Logger()),
	}
	adminOpts := []app.StockAdminOption{
		app.WithAdminLogger(logger.With().Str("component", "stock_admin").Logger()),
	}
	sweepOpts := []sweeper.Option{
		sweeper.WithSweeperLogger(logger.With().Str("component", "sweeper").Logger()),
	}

	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()

		if cfg.Cache.Enabled {
			availCache := cache.NewAvailabilityCache(rdb, cfg.Cache.TTL.Std())
			svcOpts = append(svcOpts, app.WithAvailabilityCache(availCache))
			adminOpts = append(adminOpts, app.WithAdminCache(availCache))
		}
		sweepOpts = append(sweepOpts, sweeper.WithLocker(redislock.New(rdb), "inventory:sweep", cfg.Sweeper.LockTTL.Std()))
	}

	if cfg.KafkaEnabled() {
		writer := events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher := events.NewKafkaPublisher(writer)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka writer")
			}
		}()
		svcOpts = append(svcOpts, app.WithEventPublisher(publisher))
	} else {
		svcOpts = append(svcOpts, app.WithEventPublisher(events.Nop{}))
	}

	svc := app.NewReservationService(store, ledger, clock.NewSystem(), svcOpts...)
	adminSvc := app.NewStockAdminService(ledger, adminOpts...)
	sweep := sweeper.New(svc, cfg.Sweeper.Interval.Std(), cfg.Sweeper.BatchSize, sweepOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/reservations", transporthttp.HandleCreateReservation(svc))
	mux.Handle("/reservations/", transporthttp.HandleReservationAction(svc))
	mux.Handle("/orders/", transporthttp.HandleOrderReservations(svc))
	mux.Handle("/availability", transporthttp.HandleAvailability(svc))
	mux.Handle("/stock", transporthttp.HandleStock(adminSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(mux, logger.With().Str("component", "http").Logger())

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: handler,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := sweep.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info().Msg("shutdown signal received, stopping server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("server stopped")
}
