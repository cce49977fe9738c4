// @title                       Marketplace API
// @version                     1.0
// @description                 Role-gated marketplace ledger: stores, items, purchases and withdrawals.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/marketplace/internal/api"
	"github.com/99minutos/marketplace/internal/api/handler"
	"github.com/99minutos/marketplace/internal/api/metrics"
	"github.com/99minutos/marketplace/internal/core/service"
	mongodb "github.com/99minutos/marketplace/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/marketplace/internal/infrastructure/db/redis"
	"github.com/99minutos/marketplace/internal/infrastructure/queue"
	"github.com/99minutos/marketplace/internal/pkg/config"
	"github.com/99minutos/marketplace/pkg/logger"
)

const (
	tokenTTL        = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
	drainTimeout    = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("load config")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
		File:   cfg.LogFile,
	})
	defer logger.Close()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("marketplace stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner, err := cfg.Ledger.Owner()
	if err != nil {
		return err
	}
	seed, err := seedFrom(cfg.Ledger)
	if err != nil {
		return err
	}

	// ── Stores ──────────────────────────────────────────────
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	redisClient, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()

	journal := mongodb.NewJournalRepository(db)
	payouts := mongodb.NewPayoutRepository(db)
	users := mongodb.NewAuthRepository(db)
	for name, ensure := range map[string]func(context.Context) error{
		"journal": journal.EnsureIndexes,
		"payouts": payouts.EnsureIndexes,
		"users":   users.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			log.Warn().Err(err).Str("collection", name).Msg("could not ensure indexes")
		}
	}

	// ── Ledger ──────────────────────────────────────────────
	dispatcher := queue.NewDispatcher(cfg.Ledger.JournalWorkers, journal, redisdb.NewPublisher(redisClient), log)
	ledger := service.NewLedger(owner, log,
		service.WithChangeLog(dispatcher),
		service.WithPayoutGateway(payouts),
	)

	history, err := journal.LoadAll(ctx)
	if err != nil {
		return err
	}
	if err := ledger.Replay(history); err != nil {
		return err
	}
	metrics.LedgerHeight.Set(float64(ledger.Height()))
	log.Info().Int("events", len(history)).Uint64("height", ledger.Height()).Msg("ledger restored")

	// Workers outlive the signal context so the final drain still reaches
	// the journal. The drain runs once the HTTP server has stopped.
	dispatcher.Start(context.Background())
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := dispatcher.Shutdown(dctx); err != nil {
			log.Error().Err(err).Msg("journal drain incomplete")
		}
	}()

	if err := service.Provision(ctx, ledger, seed, log); err != nil {
		return err
	}

	// ── HTTP ────────────────────────────────────────────────
	e := api.NewRouter(api.Deps{
		Ledger:    ledger,
		Auth:      service.NewAuthService(users, cfg.JWTSecret, tokenTTL),
		Guard:     redisdb.NewIdempotencyGuard(redisClient),
		Payouts:   payouts,
		Height:    ledger.Height,
		JWTSecret: cfg.JWTSecret,
		Log:       log,
		Checks: map[string]handler.Check{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
		EnableDocs: !cfg.IsProduction(),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("marketplace listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}

func seedFrom(l config.LedgerConfig) (service.Seed, error) {
	admins, err := l.Admins()
	if err != nil {
		return service.Seed{}, err
	}
	storeOwners, err := l.StoreOwners()
	if err != nil {
		return service.Seed{}, err
	}
	provisioner, err := l.Provisioner()
	if err != nil {
		return service.Seed{}, err
	}
	return service.Seed{Admins: admins, StoreOwners: storeOwners, Provisioner: provisioner}, nil
}
