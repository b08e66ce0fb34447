package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// changeRecorder collects OnChange callbacks.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Settings
}

func (r *changeRecorder) record(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, s)
}

func (r *changeRecorder) last() (Settings, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		return Settings{}, 0
	}
	return r.changes[len(r.changes)-1], len(r.changes)
}

func TestPlugin_Name(t *testing.T) {
	if got := New(Config{}).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q", got)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(Config{Path: "x"})
	if p.retryInterval != 5*time.Second {
		t.Errorf("retryInterval = %v", p.retryInterval)
	}
	if p.debounceDelay != 100*time.Millisecond {
		t.Errorf("debounceDelay = %v", p.debounceDelay)
	}
}

func TestPlugin_AppliesPermissionChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "api_key = \"k\"\npermission = \"granted\"\n")

	manual := geophoto.NewManualProvider(geophoto.PermissionGranted)
	rec := &changeRecorder{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond, OnChange: rec.record})

	ctx := context.Background()
	if err := plugin.Initialize(ctx, geophoto.PluginConfig{Manual: manual, Logger: log.NoopLogger{}}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer plugin.Shutdown(ctx)

	if got := plugin.Current().Permission; got != "granted" {
		t.Fatalf("initial permission = %q", got)
	}

	writeConfig(t, path, "api_key = \"k\"\npermission = \"denied\"\nlog_level = \"debug\"\n")
	waitFor(t, "permission change", func() bool {
		return manual.AuthorizationStatus() == geophoto.PermissionDenied
	})

	waitFor(t, "OnChange", func() bool {
		s, _ := rec.last()
		return s == Settings{Permission: "denied", LogLevel: "debug"}
	})
}

func TestPlugin_IgnoresUnrelatedAndUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "permission = \"granted\"\n")

	rec := &changeRecorder{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond, OnChange: rec.record})
	ctx := context.Background()
	if err := plugin.Initialize(ctx, geophoto.PluginConfig{Logger: log.NoopLogger{}}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer plugin.Shutdown(ctx)

	writeConfig(t, filepath.Join(dir, "other.toml"), "permission = \"denied\"\n")
	// Rewriting with only non-reloadable keys changed is not a change.
	writeConfig(t, path, "permission = \"granted\"\nendpoint = \"https://example.com/\"\n")
	time.Sleep(200 * time.Millisecond)

	if _, n := rec.last(); n != 0 {
		t.Errorf("OnChange called %d times, want 0", n)
	}
}

func TestPlugin_KeepsSettingsOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "log_level = \"warn\"\n")

	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	ctx := context.Background()
	if err := plugin.Initialize(ctx, geophoto.PluginConfig{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer plugin.Shutdown(ctx)

	writeConfig(t, path, "log_level = [oops\n")
	time.Sleep(200 * time.Millisecond)
	if got := plugin.Current().LogLevel; got != "warn" {
		t.Errorf("LogLevel = %q, want warn kept", got)
	}
}

func TestPlugin_MissingFileIsCreatedLater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	rec := &changeRecorder{}
	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond, OnChange: rec.record})
	ctx := context.Background()
	if err := plugin.Initialize(ctx, geophoto.PluginConfig{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer plugin.Shutdown(ctx)

	if plugin.Current() != (Settings{}) {
		t.Fatalf("Current() = %+v, want zero", plugin.Current())
	}

	writeConfig(t, path, "log_level = \"error\"\n")
	waitFor(t, "reload of new file", func() bool {
		return plugin.Current().LogLevel == "error"
	})
}

func TestPlugin_MissingDirectoryIsCreatedLater(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conf.d")
	path := filepath.Join(dir, "config.toml")

	plugin := New(Config{Path: path, RetryInterval: 20 * time.Millisecond, DebounceDelay: 10 * time.Millisecond})
	ctx := context.Background()
	if err := plugin.Initialize(ctx, geophoto.PluginConfig{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	defer plugin.Shutdown(ctx)

	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, path, "log_level = \"warn\"\n")
	waitFor(t, "reload after directory appeared", func() bool {
		return plugin.Current().LogLevel == "warn"
	})
}

// Writes made as soon as Initialize returns must not be lost.
func TestPlugin_WatchesBeforeInitializeReturns(t *testing.T) {
	for i := 0; i < 5; i++ {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		writeConfig(t, path, "log_level = \"info\"\n")

		plugin := New(Config{Path: path, DebounceDelay: 5 * time.Millisecond})
		ctx := context.Background()
		if err := plugin.Initialize(ctx, geophoto.PluginConfig{}); err != nil {
			t.Fatalf("Initialize() error = %v", err)
		}
		writeConfig(t, path, "log_level = \"error\"\n")
		waitFor(t, "reload of immediate write", func() bool {
			return plugin.Current().LogLevel == "error"
		})
		_ = plugin.Shutdown(ctx)
	}
}

func TestPlugin_InitializeErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, "log_level = [\n")

	plugin := New(Config{Path: path})
	if err := plugin.Initialize(context.Background(), geophoto.PluginConfig{}); err == nil {
		t.Fatal("Initialize() error = nil for unparsable file")
	}
}

func TestPlugin_DisabledWithoutPath(t *testing.T) {
	plugin := New(Config{})
	ctx := context.Background()
	if err := plugin.Initialize(ctx, geophoto.PluginConfig{}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
