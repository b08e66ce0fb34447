// Package configwatcher reloads settings from the geophoto config file.
// It watches the file's directory and, after a debounce, re-reads the
// permission and log_level keys. A changed permission is applied to the
// service's ManualProvider; every change is reported to Config.OnChange.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
)

// Settings are the config file keys that take effect without a restart.
type Settings struct {
	Permission string `toml:"permission"`
	LogLevel   string `toml:"log_level"`
}

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	path          string
	retryInterval time.Duration
	debounceDelay time.Duration
	onChange      func(Settings)

	// Runtime state
	manual   *geophoto.ManualProvider
	logger   geophoto.Logger
	current  Settings
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch. Required.
	Path string

	// RetryInterval is the delay between attempts to watch a directory
	// that does not exist yet.
	// Default: 5 seconds
	RetryInterval time.Duration

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnChange, if set, receives the settings after each reload that changed
	// them. It runs on the watcher goroutine.
	OnChange func(Settings)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 5 * time.Second,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
		onChange:      cfg.OnChange,
		logger:        log.NoopLogger{},
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize reads the current settings and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg geophoto.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	p.mu.Lock()
	p.manual = cfg.Manual
	p.logger = logger
	p.mu.Unlock()

	if p.path == "" {
		logger.Warn("config watcher disabled: no config file")
		return nil
	}

	settings, err := readSettings(p.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", p.path, err)
	}
	p.mu.Lock()
	p.current = settings
	p.mu.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch before returning so writes right after Initialize are seen. A
	// directory that does not exist yet is retried in the background.
	dir := filepath.Dir(p.path)
	watching := true
	if err := watcher.Add(dir); err != nil {
		if _, statErr := os.Stat(dir); !errors.Is(statErr, fs.ErrNotExist) {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Warn("config watcher: directory missing, retrying", log.String("dir", dir))
		watching = false
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher, watching)

	logger.Info("config watcher started", log.String("path", p.path))
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Current returns the most recently loaded settings.
func (p *Plugin) Current() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// watchLoop watches the config directory so that editors replacing the
// file by rename are seen too. When watching is false the directory is
// added first, retrying until it exists.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, watching bool) {
	defer p.wg.Done()
	defer watcher.Close()

	if !watching {
		if !p.waitForDir(ctx, watcher) {
			return
		}
		// The file may have been written before the directory was watched.
		p.reload()
	}

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

// waitForDir retries adding the config directory until it succeeds or ctx
// is done.
func (p *Plugin) waitForDir(ctx context.Context, watcher *fsnotify.Watcher) bool {
	dir := filepath.Dir(p.path)
	ticker := time.NewTicker(p.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
		err := watcher.Add(dir)
		if err == nil {
			p.logger.Info("config watcher: watching directory", log.String("dir", dir))
			return true
		}
		p.logger.Debug("config watcher: cannot watch directory, retrying",
			log.String("dir", dir), log.Err(err))
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload re-reads the file and applies what changed. A file that
// disappears or fails to parse leaves the current settings in place.
func (p *Plugin) reload() {
	settings, err := readSettings(p.path)
	if err != nil {
		p.logger.Warn("config watcher: reload failed", log.String("path", p.path), log.Err(err))
		return
	}

	p.mu.Lock()
	previous := p.current
	p.current = settings
	manual := p.manual
	p.mu.Unlock()

	if settings == previous {
		return
	}

	if settings.Permission != previous.Permission && settings.Permission != "" {
		status, err := geophoto.ParsePermissionStatus(settings.Permission)
		switch {
		case err != nil:
			p.logger.Warn("config watcher: ignoring permission", log.Err(err))
		case manual != nil:
			manual.SetPermission(status)
			p.logger.Info("config watcher: permission changed", log.Stringer("permission", status))
		}
	}

	if p.onChange != nil {
		p.onChange(settings)
	}
}

func readSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse: %w", err)
	}
	return s, nil
}

// Ensure Plugin implements geophoto.Plugin.
var _ geophoto.Plugin = (*Plugin)(nil)
