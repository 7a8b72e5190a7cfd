package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events an editor produces on save.
const reloadDebounce = 200 * time.Millisecond

// Watch reloads the holder's config file whenever it changes on disk, until
// ctx is canceled. The parent directory is watched so that editors that
// save by rename are seen. A file that fails to load or validate is logged
// and the previous config stays in effect. onReload, if non-nil, is called
// after each successful update.
func Watch(ctx context.Context, h *Holder, env EnvOverrides, logger *slog.Logger, onReload func(*Config)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(h.Path())

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config: watching %s: %w", filepath.Dir(target), err)
	}

	logger.Debug("watching config file", slog.String("path", target))

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != target {
				continue
			}

			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(reloadDebounce)
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", watchErr.Error()))

		case <-timer.C:
			Reload(h, env, logger, onReload)
		}
	}
}

// Reload re-resolves the held config path now, outside the watcher loop.
// A config that fails to load leaves the holder unchanged.
func Reload(h *Holder, env EnvOverrides, logger *slog.Logger, onReload func(*Config)) {
	if logger == nil {
		logger = slog.Default()
	}

	env.ConfigPath = ""

	cfg, _, err := Resolve(env, CLIOverrides{ConfigPath: h.Path()})
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", h.Path()),
			slog.String("error", err.Error()),
		)

		return
	}

	prev := h.Config()

	// Flags such as --listen are not re-read; keep the running values.
	cfg.Server.Listen = prev.Server.Listen
	cfg.Logging.LogLevel = prev.Logging.LogLevel

	h.Update(cfg)

	logger.Info("config reloaded", slog.String("path", h.Path()))

	if onReload != nil {
		onReload(cfg)
	}
}
