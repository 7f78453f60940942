package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/playshare/internal/repositories"
	"github.com/desertthunder/playshare/internal/server"
	"github.com/desertthunder/playshare/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the API and a session purge loop until ctx is cancelled or either fails.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	logger := shared.WithLogger(r.logger, "component", "server")
	if lvl := r.config.Server.LogLevel; lvl != "" {
		shared.SetLogLevel(logger, shared.ParseLogLevel(lvl))
	}

	sessions := repositories.NewSessionRepository(db)
	api := server.NewAPI(
		repositories.NewUserRepository(db),
		repositories.NewPlaylistRepository(db),
		sessions,
		logger,
		server.WithSessionTTL(r.config.Server.SessionTTL.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(ctx, addr, api.Router(), logger)
	})
	g.Go(func() error {
		return purgeSessions(ctx, sessions, cmd.Duration("purge-interval"), logger)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

type sessionPurger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// purgeSessions deletes expired sessions every interval. Failures are logged and retried on the next tick.
func purgeSessions(ctx context.Context, sessions sessionPurger, interval time.Duration, logger *log.Logger) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := sessions.Purge(ctx, now)
			if err != nil {
				logger.Warn("failed to purge sessions", "error", err)
				continue
			}
			logger.Debug("purged expired sessions", "count", n)
		}
	}
}
