// Package app wires configuration, stores, services and the HTTP API into
// a runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rpg-librarium/liberation/internal/api"
	"github.com/rpg-librarium/liberation/internal/api/handler"
	"github.com/rpg-librarium/liberation/internal/core/ports"
	"github.com/rpg-librarium/liberation/internal/core/service"
	"github.com/rpg-librarium/liberation/internal/infrastructure/config"
	mongostore "github.com/rpg-librarium/liberation/internal/infrastructure/db/mongo"
	"github.com/rpg-librarium/liberation/internal/infrastructure/db/postgres"
	redisstore "github.com/rpg-librarium/liberation/internal/infrastructure/db/redis"
	"github.com/rpg-librarium/liberation/internal/infrastructure/queue"
	"github.com/rpg-librarium/liberation/pkg/logger"
)

const (
	serviceName     = "liberation"
	shutdownTimeout = 30 * time.Second
)

// Run parses the subcommand from args, loads configuration and runs the
// selected mode until ctx is cancelled. Logs are written to w.
func Run(ctx context.Context, w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Output:  w,
		Service: serviceName,
	})
	log.Info().Str("command", string(cmd)).Str("env", cfg.Env).Msg("starting")

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg, log)
	default:
		return runServe(ctx, cfg, log, w)
	}
}

func runMigrate(cfg *config.Config, log zerolog.Logger) error {
	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate: store driver %q has no migrations", cfg.Store.Driver)
	}
	if err := postgres.RunMigrations(cfg.Store.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Msg("database migrations applied")
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger, w io.Writer) error {
	if cfg.TracingEnabled {
		shutdownTracing, err := setupTracing(w)
		if err != nil {
			return err
		}
		defer func() {
			tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(tctx); err != nil {
				log.Warn().Err(err).Msg("tracer shutdown")
			}
		}()
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(log)

	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer rdb.Close()
		idem = redisstore.NewIdempotencyStore(rdb)
		st.health["redis"] = redisstore.NewPinger(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotent creates enabled")
	}

	auth := service.NewAuthService(st.users, service.NewBcryptHasher(cfg.Auth.BcryptCost), service.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	}, logger.Component("auth"))
	if err := auth.Bootstrap(ctx, service.BootstrapAdmin{
		Username: cfg.Bootstrap.Username,
		Password: cfg.Bootstrap.Password,
		Roles:    cfg.Bootstrap.Roles,
	}); err != nil {
		return err
	}
	books := service.NewBookService(st.books, logger.Component("catalog"))

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, st.audit, logger.Component("audit"))
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	dispatcher.Start(workerCtx)

	router := api.NewRouter(api.Deps{
		Auth:            auth,
		Books:           books,
		Audit:           dispatcher,
		Idempotency:     idem,
		Health:          st.health,
		Logger:          logger.Component("http"),
		PublicRead:      cfg.Catalog.PublicRead,
		LoginRatePerMin: cfg.Auth.LoginRatePerMin,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return serve(ctx, server, dispatcher, log)
}

// serve runs server until ctx is done, then shuts it down and drains the
// audit queue. The first error from either side is returned.
func serve(ctx context.Context, server *http.Server, dispatcher *queue.Dispatcher, log zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		if derr := dispatcher.Shutdown(shutdownCtx); derr != nil {
			log.Warn().Err(derr).Msg("audit queue not fully drained")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("stopped")
	return nil
}

// setupTracing installs a global tracer provider that prints finished spans
// to w.
func setupTracing(w io.Writer) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

type stores struct {
	users  ports.CredentialStore
	books  ports.BookRepository
	audit  ports.AuditRepository
	health map[string]handler.Pinger
	close  func(zerolog.Logger)
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.Store.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		db, err := postgres.Open(ctx, postgres.Config{URL: cfg.Store.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		log.Info().Msg("postgres connection established")
		users := postgres.NewUserRepository(db)
		return &stores{
			users:  users,
			books:  postgres.NewBookRepository(db),
			audit:  postgres.NewAuditRepository(db),
			health: map[string]handler.Pinger{"postgres": users},
			close: func(log zerolog.Logger) {
				if err := db.Close(); err != nil {
					log.Warn().Err(err).Msg("postgres close")
				}
			},
		}, nil

	case config.DriverMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connection established")
		return &stores{
			users:  mongostore.NewUserRepository(db),
			books:  mongostore.NewBookRepository(db),
			audit:  mongostore.NewAuditRepository(db),
			health: map[string]handler.Pinger{"mongo": mongostore.NewPinger(client)},
			close: func(log zerolog.Logger) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					log.Warn().Err(err).Msg("mongo disconnect")
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
