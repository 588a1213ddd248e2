package internal

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func writeConfig(t *testing.T, path, level string) {
	t.Helper()
	content := "app:\n  log_level: " + level +
		"\n  http:\n    port: 8080\nsqlite:\n  path: ./test.db\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatchConfig_LogLevelHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "INFO")

	var level slog.LevelVar
	level.Set(slog.LevelInfo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		WatchConfig(ctx, path, &level, logger)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	writeConfig(t, path, "ERROR")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return level.Level() == slog.LevelError
	}, "log level not hot-reloaded after config write")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}

func TestWatchConfig_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "INFO")

	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchConfig(ctx, path, &level, logger)
	time.Sleep(100 * time.Millisecond)

	// Editors replace the file via temp + rename; the watcher must still
	// pick up the change.
	tmp := filepath.Join(dir, "config.yaml.tmp")
	writeConfig(t, tmp, "DEBUG")
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return level.Level() == slog.LevelDebug
	}, "log level not reloaded after atomic replace")
}

func TestWatchConfig_InvalidConfigKeepsLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, "INFO")

	var level slog.LevelVar
	level.Set(slog.LevelInfo)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go WatchConfig(ctx, path, &level, logger)
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte(": not yaml {{{"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Give the debounce a chance to fire, then confirm the level survived.
	time.Sleep(600 * time.Millisecond)
	if level.Level() != slog.LevelInfo {
		t.Errorf("level = %v, want unchanged on invalid config", level.Level())
	}
}
