// Command scriptplan is the CLI entry point for the scheduling kernel.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scriptplanner/scriptplan/adapter/cli"
	cliJournal "github.com/scriptplanner/scriptplan/adapter/cli/journal"
	cliSchedule "github.com/scriptplanner/scriptplan/adapter/cli/schedule"
	cliServe "github.com/scriptplanner/scriptplan/adapter/cli/serve"
	"github.com/scriptplanner/scriptplan/internal/eventbus"
	"github.com/scriptplanner/scriptplan/internal/journal"
	"github.com/scriptplanner/scriptplan/internal/resultcache"
	"github.com/scriptplanner/scriptplan/pkg/config"
	"github.com/scriptplanner/scriptplan/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("failed to load config, using development defaults", "error", err)
		cfg = &config.Config{AppEnv: "development", LocalMode: true}
	}
	if cfg.IsDevelopment() {
		logger = observability.NewLogger(observability.LogConfig{
			Level:          observability.LogLevelDebug,
			Format:         observability.LogFormatText,
			ServiceName:    "scriptplan",
			ServiceVersion: cli.Version,
		})
	}
	cli.SetLogger(logger)

	repo := journalRepository(ctx, cfg, logger)
	cache := resultCache(cfg, logger)
	pub := eventPublisher(cfg, logger)

	cli.SetApp(cli.NewApp(cfg, repo, cache, pub))

	cli.AddCommand(cliSchedule.Cmd)
	cli.AddCommand(cliJournal.Cmd)
	cli.AddCommand(cliServe.Cmd)

	cli.Execute()
}

// journalRepository wires the run journal backend: SQLite in
// local mode, Postgres otherwise, falling back to an in-memory
// repository if the connection can't be established — a CLI
// invocation should still be able to schedule even without a
// database, it just won't persist the run.
func journalRepository(ctx context.Context, cfg *config.Config, log *slog.Logger) journal.Repository {
	if cfg.LocalMode {
		conn, err := journal.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			log.Warn("failed to open sqlite journal, using in-memory journal", "error", err)
			return journal.NewMemoryRepository()
		}
		repo, err := journal.NewSQLRepository(ctx, conn)
		if err != nil {
			log.Warn("failed to initialize sqlite journal schema, using in-memory journal", "error", err)
			return journal.NewMemoryRepository()
		}
		return repo
	}

	conn, err := journal.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn("failed to connect to postgres journal, using in-memory journal", "error", err)
		return journal.NewMemoryRepository()
	}
	repo, err := journal.NewSQLRepository(ctx, conn)
	if err != nil {
		log.Warn("failed to initialize postgres journal schema, using in-memory journal", "error", err)
		return journal.NewMemoryRepository()
	}
	return repo
}

// resultCache wires the scenario result cache: Redis behind a
// circuit breaker, or an in-process map in local mode.
func resultCache(cfg *config.Config, log *slog.Logger) resultcache.Cache {
	if cfg.LocalMode || cfg.RedisURL == "" {
		return resultcache.NewMemoryCache()
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn("failed to parse REDIS_URL, using in-memory result cache", "error", err)
		return resultcache.NewMemoryCache()
	}
	client := redis.NewClient(opts)
	ttl := cfg.ResultCacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return resultcache.NewRedisCache(client, ttl, log)
}

// eventPublisher wires the run-event bus: RabbitMQ in a deployed
// setup, the in-process bus in local mode.
func eventPublisher(cfg *config.Config, log *slog.Logger) eventbus.Publisher {
	if cfg.LocalMode || cfg.RabbitMQURL == "" {
		return eventbus.NewInProcessEventBus(log)
	}
	pub, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("failed to connect to rabbitmq, using in-process event bus", "error", err)
		return eventbus.NewInProcessEventBus(log)
	}
	return pub
}
