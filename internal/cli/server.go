package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/config"
	"pubquiz-service/internal/infra/memory"
	"pubquiz-service/internal/infra/postgres"
	redisinfra "pubquiz-service/internal/infra/redis"
	"pubquiz-service/internal/infra/sqlite"
	"pubquiz-service/internal/quizspec"
	transport "pubquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz host server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// backends holds the connections opened for one server run.
type backends struct {
	redis  *redis.Client
	pool   *pgxpool.Pool
	bun    *bun.DB
	sqlite *sqlite.SnapshotStore
}

func (b *backends) Close() {
	if b.sqlite != nil {
		_ = b.sqlite.Close()
	}
	if b.bun != nil {
		_ = b.bun.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	b := &backends{}
	defer b.Close()

	if cfg.Redis.Addr != "" {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if cfg.Postgres.URL != "" {
		b.bun = openBun(cfg.Postgres.URL)
		if err := runMigrations(ctx, b.bun, logger); err != nil {
			return err
		}
		b.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	validator := quizspec.Validator{Permissive: cfg.Quiz.Permissive}
	quizRepo := newQuizRepository(cfg, b, validator)

	snapshots, err := newSnapshotStore(ctx, cfg, b, logger)
	if err != nil {
		return err
	}

	var store app.SessionRepository
	if b.redis != nil {
		store = redisinfra.NewSessionStore(b.redis, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	opts := []app.ServiceOption{
		app.WithValidator(validator),
		app.WithLogger(logger),
		app.WithSessionOptions(app.WithPolicy(cfg.ScoringPolicy())),
	}
	if snapshots != nil {
		opts = append(opts, app.WithSnapshotStore(snapshots))
	}
	service := app.NewQuizService(store, quizRepo, opts...)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewAPI(service, validator, logger).Routes(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: it would also cut long-lived websocket connections
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.WithField("port", finalPort).Info("starting quiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		logger.WithError(err).Error("failed to start server")
		return err
	case <-ctx.Done():
		logger.Info("shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newQuizRepository picks the document source (Postgres, a directory, or
// the built-in example) and the cache in front of it.
func newQuizRepository(cfg config.Config, b *backends, validator quizspec.Validator) app.QuizRepository {
	var loader memory.QuizLoader = memory.NewStaticQuizLoader(map[string]string{
		quizspec.ExampleID: quizspec.ExampleDocument,
	})
	switch {
	case b.pool != nil:
		loader = postgres.NewQuizLoader(b.pool)
	case cfg.Quiz.Dir != "":
		loader = memory.NewDirQuizLoader(cfg.Quiz.Dir)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if b.redis != nil {
		return redisinfra.NewQuizRepository(b.redis, loader, validator, quizTTL)
	}
	return memory.NewQuizRepository(loader, validator, quizTTL)
}

type pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

func newSnapshotStore(ctx context.Context, cfg config.Config, b *backends, log logrus.FieldLogger) (app.SnapshotStore, error) {
	ttl := config.TTLDuration(cfg.Snapshot.TTL, 0)

	var (
		store app.SnapshotStore
		err   error
	)
	switch driver := cfg.SnapshotDriver(); driver {
	case config.SnapshotNone:
		return nil, nil
	case config.SnapshotMemory:
		store = memory.NewSnapshotStore()
	case config.SnapshotRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("snapshot driver redis needs redis.addr")
		}
		store = redisinfra.NewSnapshotStore(b.redis, ttl)
	case config.SnapshotPostgres:
		if b.bun == nil {
			return nil, fmt.Errorf("snapshot driver postgres needs postgres.url")
		}
		store = postgres.NewSnapshotStore(b.bun)
	case config.SnapshotSQLite:
		b.sqlite, err = sqlite.Open(cfg.Snapshot.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = b.sqlite
	default:
		return nil, fmt.Errorf("unknown snapshot driver %q", driver)
	}

	// redis expires keys itself; SQL stores are swept once at startup
	if p, ok := store.(pruner); ok && ttl > 0 {
		n, err := p.Prune(ctx, time.Now().Add(-ttl))
		if err != nil {
			log.WithError(err).Warn("snapshot prune failed")
		} else if n > 0 {
			log.WithField("removed", n).Info("pruned stale snapshots")
		}
	}
	log.WithField("driver", cfg.SnapshotDriver()).Info("snapshot store ready")
	return store, nil
}
