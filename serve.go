package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/planset-go/internal/config"
	"github.com/tonimelisma/planset-go/internal/history"
	"github.com/tonimelisma/planset-go/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web review form and the chat endpoint",
		Long: `Serve the HTTP surfaces:

  POST /api/review    multipart "file" upload or form "url" sharing link
  POST /api/messages  chat activity JSON, answered with the bot's replies
  GET  /health        liveness and sharing-API configuration

The config file is watched; changes to limits, credentials, network, and
storage apply to new requests without a restart. "planset-go reload" (or
SIGHUP) forces an immediate reload. Only one server runs per data
directory.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("listen", "", "listen address (overrides config and PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctx = shutdownContext(ctx, logger)

	if missing := config.MissingCredentials(cc.Cfg); len(missing) > 0 {
		logger.Info("sharing API credentials incomplete, share links use direct rewrite",
			slog.Any("missing", missing),
		)
	}

	if pidPath := config.DefaultPIDPath(); pidPath != "" {
		lock, err := acquireServerLock(pidPath)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	hist, err := openHistory(ctx, cc.Cfg, logger)
	if err != nil {
		return err
	}

	if hist != nil {
		defer hist.Close()
	}

	svc, err := newService(ctx, cc.Cfg, logger, hist)
	if err != nil {
		return err
	}

	holder := config.NewHolder(cc.Cfg, cc.CfgPath)
	srv := server.New(svc, holder, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.ListenAndServe(gctx, cc.Cfg.Server.Listen)
	})

	onReload := func(cfg *config.Config) {
		reloadService(gctx, srv, cfg, logger, hist)
	}

	g.Go(func() error {
		onSIGHUP(gctx, logger, func() { config.Reload(holder, cc.Env, logger, onReload) })
		return nil
	})

	if watchable(cc.CfgPath) {
		g.Go(func() error {
			return config.Watch(gctx, holder, cc.Env, logger, onReload)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("server stopped")

	return nil
}

func newReloadCmd() *cobra.Command {
	return newSignalCmd("reload", "Tell the running server to reload its config now",
		syscall.SIGHUP, "Reload requested.")
}

func newStopCmd() *cobra.Command {
	return newSignalCmd("stop", "Shut down the running server gracefully",
		syscall.SIGTERM, "Shutdown requested.")
}

// newSignalCmd builds a command that signals the server holding the PID file.
func newSignalCmd(use, short string, sig syscall.Signal, done string) *cobra.Command {
	return &cobra.Command{
		Use:         use,
		Short:       short,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if err := signalServer(config.DefaultPIDPath(), sig); err != nil {
				return err
			}

			cc.Statusf("%s\n", done)

			return nil
		},
	}
}

// reloadService rebuilds the review service from a reloaded config. The
// history store stays open across reloads.
func reloadService(ctx context.Context, srv *server.Server, cfg *config.Config, logger *slog.Logger, hist *history.Store) {
	svc, err := newService(ctx, cfg, logger, hist)
	if err != nil {
		logger.Warn("config reload: keeping previous service", slog.String("error", err.Error()))
		return
	}

	srv.SetService(svc)
}

// watchable reports whether the config file's directory exists, which the
// watcher needs.
func watchable(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(filepath.Dir(path))

	return err == nil && info.IsDir()
}
