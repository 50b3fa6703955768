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

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"dor/internal/catalog"
	"dor/internal/cocina"
	"dor/internal/events"
	httpapi "dor/internal/http"
	jwttoken "dor/internal/jwt_token"
	"dor/internal/marcxml"
	marcxmlhandler "dor/internal/marcxml/handler"
	"dor/internal/objects"
	objectshandler "dor/internal/objects/handler"
	"dor/internal/platform/config"
	"dor/internal/platform/httpserver"
	"dor/internal/platform/kafka"
	"dor/internal/platform/logger"
	"dor/internal/platform/metrics"
	"dor/internal/platform/postgres"
	"dor/internal/platform/redis"
	"dor/internal/releasetags"
	"dor/internal/repository"
	"dor/internal/repository/store"
	authmw "dor/pkg/platform/middleware/auth"
)

const (
	eventBufferSize = 1024
	topicPartitions = 3
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// run wires dependencies and serves until ctx is canceled.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	checks := map[string]httpapi.HealthCheck{}

	objectStore, closeStore, err := buildStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	catalogClient := catalog.New(cfg.Catalog,
		catalog.WithLogger(log),
		catalog.WithMetrics(catalog.NewMetrics()),
	)
	catalogService, err := marcxml.New(catalogClient, marcxml.WithLogger(log))
	if err != nil {
		return err
	}

	resolver, err := releasetags.NewResolver(repository.NewReleaseGraph(objectStore),
		releasetags.WithMaxDepth(cfg.Release.MaxDepth),
		releasetags.WithLogger(log),
		releasetags.WithMetrics(releasetags.NewMetrics()),
	)
	if err != nil {
		return err
	}
	mapper, err := cocina.NewMapper(resolver,
		cocina.WithLogger(log),
		cocina.WithMetrics(cocina.NewMetrics()),
	)
	if err != nil {
		return err
	}

	downstream, closeEvents, err := buildPublisher(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeEvents()
	buffer := events.NewBuffered(eventBufferSize)

	objectService, err := objects.New(objectStore, mapper, resolver, catalogService,
		objects.WithLogger(log),
		objects.WithPublisher(buffer),
	)
	if err != nil {
		return err
	}

	deps := httpapi.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Checks:  checks,
		Routes: []httpapi.Registrar{
			objectshandler.New(objectService, log),
			marcxmlhandler.New(catalogService, log),
		},
	}
	if cfg.Auth.HMACSecret != "" {
		deps.JWT = jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.HMACSecret, ""))
	}
	if cfg.Auth.ServiceUser != "" && cfg.Auth.ServicePasswordHash != "" {
		deps.Basic = authmw.BcryptCredentials{
			User:         cfg.Auth.ServiceUser,
			PasswordHash: []byte(cfg.Auth.ServicePasswordHash),
		}
	}
	if deps.JWT == nil && deps.Basic == nil {
		log.Warn("no DOR_HMAC_SECRET or service credentials configured; API routes are unauthenticated")
	}

	srv := httpserver.New(cfg.Server.Addr, httpapi.NewRouter(deps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.NewWorker(buffer, downstream, log).Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting dor", "addr", cfg.Server.Addr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func buildStore(ctx context.Context, cfg config.Config, checks map[string]httpapi.HealthCheck) (repository.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		checks["redis"] = client.Health
		return store.NewRedisStore(client.Client, store.WithRedisMetrics(store.NewMetrics())),
			func() { _ = client.Close() }, nil
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPostgresStore(db, store.WithPostgresMetrics(store.NewMetrics()))
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		checks["postgres"] = db.PingContext
		return pg, func() { _ = db.Close() }, nil
	default:
		return store.NewMemoryStore(), func() {}, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, log *slog.Logger, checks map[string]httpapi.HealthCheck) (events.Publisher, func(), error) {
	client, err := kafka.New(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Info("no kafka brokers configured; object events are discarded")
		return events.NopPublisher{}, func() {}, nil
	}
	if err := kafka.EnsureTopic(ctx, client, cfg.Kafka.Topic, topicPartitions); err != nil {
		client.Close()
		return nil, nil, err
	}
	checks["kafka"] = func(ctx context.Context) error { return client.Ping(ctx) }

	pub, err := events.NewKafkaPublisher(client, cfg.Kafka.Topic)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return pub, func() { flushAndClose(client) }, nil
}

func flushAndClose(client *kgo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Flush(ctx)
	client.Close()
}
