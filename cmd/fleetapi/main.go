// @title                       Fleet API
// @version                     1.0
// @description                 Fleet services platform: catalog-driven CRUD over clients, mechanics, services, payments and related collections.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
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

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fleetcore/fleet-api/internal/api"
	"github.com/fleetcore/fleet-api/internal/api/handler"
	"github.com/fleetcore/fleet-api/internal/api/middleware"
	"github.com/fleetcore/fleet-api/internal/core/catalog"
	"github.com/fleetcore/fleet-api/internal/core/ports"
	"github.com/fleetcore/fleet-api/internal/core/service"
	"github.com/fleetcore/fleet-api/internal/infrastructure/config"
	"github.com/fleetcore/fleet-api/internal/infrastructure/db/memory"
	mongodb "github.com/fleetcore/fleet-api/internal/infrastructure/db/mongo"
	redisdb "github.com/fleetcore/fleet-api/internal/infrastructure/db/redis"
	"github.com/fleetcore/fleet-api/internal/infrastructure/messaging"
	"github.com/fleetcore/fleet-api/internal/infrastructure/queue"
	"github.com/fleetcore/fleet-api/pkg/logger"
)

var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fleetapi",
		Short:         "Fleet services platform API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.AddCommand(newServeCmd(), newIndexesCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, log, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			if err := serve(ctx, cfg, log); err != nil {
				log.Error().Err(err).Msg("server stopped with error")
				return err
			}
			return nil
		},
	}
}

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes for every catalog collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}

			client, db, err := mongodb.Connect(cmd.Context(), mongodb.Config{
				URI:      cfg.Mongo.URI,
				Database: cfg.Mongo.Database,
				Timeout:  cfg.Mongo.Timeout,
			})
			if err != nil {
				log.Error().Err(err).Msg("failed to connect to MongoDB")
				return err
			}
			defer func() { _ = mongodb.Disconnect(client, cfg.Mongo.Timeout) }()

			if err := mongodb.EnsureIndexes(cmd.Context(), db, catalog.All()); err != nil {
				log.Error().Err(err).Msg("failed to create indexes")
				return err
			}
			log.Info().Int("collections", len(catalog.All())).Msg("indexes ensured")
			return nil
		},
	}
}

func bootstrap(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, zerolog.Nop(), err
	}
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "fleet-api",
	})
	return cfg, log, nil
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if err := catalog.Validate(catalog.All()); err != nil {
		return err
	}
	checks := map[string]handler.Check{}

	// --- Storage ---
	var (
		repo     ports.ResourceRepository
		authRepo ports.AuthRepository
	)
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		repo = memory.NewResourceRepository()
		authRepo = memory.NewAuthRepository()
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			Timeout:  cfg.Mongo.Timeout,
		})
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer func() {
			if err := mongodb.Disconnect(client, cfg.Mongo.Timeout); err != nil {
				log.Error().Err(err).Msg("mongo disconnect failed")
			}
		}()
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

		if err := mongodb.EnsureIndexes(ctx, db, catalog.All()); err != nil {
			log.Warn().Err(err).Msg("index creation failed; continuing")
		}
		repo = mongodb.NewResourceRepository(db, cfg.Mongo.Timeout)
		authRepo = mongodb.NewAuthRepository(db, cfg.Mongo.Timeout)
		checks["mongodb"] = handler.MongoCheck(db)
	}

	// --- Rate limiting ---
	rateStore := middleware.NewMemoryStore(cfg.RateLimit.Window, cfg.RateLimit.Max)
	if cfg.Redis.Enabled {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; using in-process rate limiter")
		} else {
			defer func() { _ = rdb.Close() }()
			rateStore = redisdb.NewRateLimitStore(rdb, cfg.RateLimit.Window, cfg.RateLimit.Max, log)
			checks["redis"] = handler.RedisCheck(rdb)
		}
	}

	// --- Change events ---
	var publisher ports.EventPublisher
	if len(cfg.Events.Brokers) > 0 {
		publisher = messaging.NewKafkaPublisher(log, cfg.Events.Brokers, cfg.Events.Topic)
		log.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).Msg("publishing change events to Kafka")
	} else {
		publisher = messaging.NewLogPublisher(log)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("event publisher close failed")
		}
	}()
	dispatcher := queue.NewDispatcher(cfg.Events.Workers, publisher, log)

	// --- Services ---
	resources := make([]ports.ResourceService, 0, len(catalog.All()))
	for _, def := range catalog.All() {
		svcLog := log.With().Str("resource", def.Name).Logger()
		resources = append(resources, service.NewResourceService(def, repo, dispatcher, svcLog))
	}

	e := api.NewRouter(api.Deps{
		Logger:       log,
		JWTSecret:    cfg.JWTSecret,
		Version:      version,
		Auth:         service.NewAuthService(authRepo, cfg.JWTSecret, cfg.TokenTTL),
		Resources:    resources,
		RateLimit:    rateStore,
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	dispatcher.Start(dispatchCtx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Str("store", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	// Requests have drained; flush queued events before closing the publisher.
	stopDispatch()
	dispatcher.Wait()
	log.Info().Msg("server stopped")
	return err
}
