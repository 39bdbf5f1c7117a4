package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/eduhub/authbroker/config"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// RunConfig groups everything the service runtime needs.
type RunConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient goredis.UniversalClient
	Logger      *slog.Logger
}

// Run wires services, starts the HTTP server, and blocks until SIGINT or
// SIGTERM, then drains gracefully.
func Run(ctx context.Context, cfg *RunConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auth, err := BuildAuth(ctx, cfg.Config, cfg.DB, cfg.RedisClient, cfg.Logger)
	if err != nil {
		return err
	}

	server := StartHTTPServer(&HTTPServerConfig{
		Config:  cfg.Config,
		Auth:    auth,
		DB:      cfg.DB,
		Redis:   cfg.RedisClient,
		Version: Version,
		Logger:  cfg.Logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		// Signal context is done; shut down with a fresh context so the drain
		// is not itself canceled.
		return ShutdownHTTPServer(context.Background(), server, cfg.Config, cfg.Logger)
	})

	return g.Wait()
}
