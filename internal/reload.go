package internal

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	pkgconfig "github.com/starford/othala/pkg/config"
)

// WatchConfig watches the config file and hot-reloads the log level when the
// file changes, until ctx is cancelled. Editors often replace the file
// (write to temp + rename), so the parent directory is watched and events
// are debounced before reloading.
func WatchConfig(ctx context.Context, path string, level *slog.LevelVar, logger *slog.Logger) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch: init failed", slog.String("error", err.Error()))
		return
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		logger.Warn("config watch: resolve path failed", slog.String("error", err.Error()))
		return
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		logger.Warn("config watch: add dir failed", slog.String("error", err.Error()))
		return
	}

	logger.Info("config watch: started", slog.String("path", abs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("config watch: stopped")
			return

		case <-reloadCh:
			cfg := NewDefaultConfig()
			if err := pkgconfig.Load(abs, cfg); err != nil {
				logger.Warn("config watch: reload failed", slog.String("error", err.Error()))
				continue
			}
			if cfg.App.LogLevel != level.Level() {
				logger.Info("config watch: log level changed",
					slog.String("from", level.Level().String()),
					slog.String("to", cfg.App.LogLevel.String()))
				level.Set(cfg.App.LogLevel)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Name != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error("config watch: error", slog.String("error", watchErr.Error()))
		}
	}
}
