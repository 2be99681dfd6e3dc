package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const watchedConfig = `profiles:
  - name: pi
    host: pi.local
    user: pi
`

// replaceFile swaps in new content with a rename, the way editors save.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

const watchedConfigTwoProfiles = watchedConfig + `  - name: nas
    host: nas.local
    user: admin
`

func TestWatcher_ReloadsOnSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watchedConfig), 0600); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { changed <- cfg },
		WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSettleDelay(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if got := len(w.Config().Profiles); got != 1 {
		t.Fatalf("initial profiles = %d, want 1", got)
	}

	replaceFile(t, path, watchedConfigTwoProfiles)

	select {
	case cfg := <-changed:
		if len(cfg.Profiles) != 2 {
			t.Errorf("reloaded profiles = %d, want 2", len(cfg.Profiles))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after save")
	}
	if _, ok := w.Config().Profile("nas"); !ok {
		t.Error("Config() does not return the reloaded profiles")
	}
}

func TestWatcher_IgnoresInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watchedConfig), 0600); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { changed <- cfg },
		WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithSettleDelay(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	for _, content := range []string{
		"profiles: [unterminated",
		"profiles:\n  - name: broken\n",
	} {
		replaceFile(t, path, content)

		select {
		case cfg := <-changed:
			t.Errorf("onChange called with %+v for %q", cfg, content)
		case <-time.After(300 * time.Millisecond):
		}
		if p := w.Config().Profiles; len(p) != 1 || p[0].Name != "pi" {
			t.Errorf("profiles = %+v after %q, want previous config kept", p, content)
		}
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(watchedConfig), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	if _, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "config.yaml"), nil); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
