package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/hszk-dev/atelier/internal/auth"
	"github.com/hszk-dev/atelier/internal/config"
	"github.com/hszk-dev/atelier/internal/domain/repository"
	"github.com/hszk-dev/atelier/internal/infrastructure/cache"
	"github.com/hszk-dev/atelier/internal/infrastructure/gateway"
	"github.com/hszk-dev/atelier/internal/infrastructure/postgres"
	"github.com/hszk-dev/atelier/internal/infrastructure/queue"
	"github.com/hszk-dev/atelier/internal/usecase"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the clients a command needs. Fields are set by connect.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	pg     *postgres.Client
	mirror repository.CacheMirror
	tasks  *queue.Client
	engine *usecase.MediaEngine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var verbose bool

	root := &cobra.Command{
		Use:           "studio",
		Short:         "Manage portfolio events, photos and videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(a.logger)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at info level")

	root.AddCommand(
		newMigrateCmd(a),
		newTokenCmd(a),
		newCreateEventCmd(a),
		newUpdateEventCmd(a),
		newUploadCmd(a, "upload-photos", "Upload photos into an event", false),
		newUploadCmd(a, "upload-videos", "Upload video files into an event", true),
		newAddVideoCmd(a),
		newSetCoverCmd(a),
		newDeleteEventCmd(a),
		newDeletePhotoCmd(a),
		newDeleteVideoCmd(a),
		newRefreshCmd(a),
	)
	return root
}

// connect wires the engine against the record store, the cache mirror,
// the gateway and, when enabled, the task queue.
func (a *app) connect(ctx context.Context) error {
	cfg := a.cfg

	pg, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	a.pg = pg

	if cfg.Redis.Disabled {
		a.mirror = cache.NewMemoryMirror()
	} else {
		a.mirror = cache.NewRedisMirror(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), a.logger)
	}
	if err := a.mirror.Open(ctx); err != nil {
		return fmt.Errorf("failed to open cache mirror: %w", err)
	}

	token := cfg.Gateway.Token
	if token == "" {
		token, err = auth.IssueToken("studio", []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("failed to issue gateway token: %w", err)
		}
	}
	gw := gateway.NewClient(gateway.Config{
		BaseURL: cfg.Gateway.BaseURL,
		Token:   token,
		Timeout: cfg.Gateway.Timeout,
	}, nil)

	deps := usecase.MediaEngineDeps{
		Events:  postgres.NewEventRepository(pg.Pool()),
		Photos:  postgres.NewPhotoRepository(pg.Pool()),
		Videos:  postgres.NewVideoRepository(pg.Pool()),
		Cache:   cache.NewCatalog(a.mirror),
		Gateway: gw,
		Uploader: usecase.NewUploader(gw, usecase.UploaderConfig{
			Concurrency: cfg.Upload.Concurrency,
			FileTimeout: cfg.Upload.FileTimeout,
		}, a.logger),
	}

	if cfg.RabbitMQ.Enabled {
		q, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()), a.logger)
		if err != nil {
			a.logger.Warn("task queue unavailable, failed deletes will not be retried", "error", err)
		} else {
			a.tasks = q
			deps.Tasks = q
		}
	}

	a.engine = usecase.NewMediaEngine(deps, usecase.MediaEngineConfig{
		SlugRetries:   cfg.Engine.SlugRetries,
		DeleteTimeout: cfg.Engine.DeleteTimeout,
	}, a.logger)
	return nil
}

func (a *app) close() {
	if a.tasks != nil {
		_ = a.tasks.Close()
	}
	if a.mirror != nil {
		_ = a.mirror.Close()
	}
	if a.pg != nil {
		a.pg.Close()
	}
}
