package geophoto

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/geophoto/internal/adapters/cache"
	"github.com/bft-labs/geophoto/internal/adapters/flickr"
	"github.com/bft-labs/geophoto/internal/adapters/location"
	"github.com/bft-labs/geophoto/internal/app"
	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// machineStartTimeout bounds how long Start waits for the fetch machine loop.
const machineStartTimeout = 5 * time.Second

// Service hosts a fetch machine together with its location provider, photo
// lookup, optional feed persistence and plugins.
// Use New() to create an instance, then Start() to run it.
type Service struct {
	config     Config
	lifecycle  *app.Lifecycle
	machine    *app.Machine
	controller *Controller
	provider   ports.LocationProvider
	repo       ports.FeedRepository
	memo       *cache.Memo
	emitter    *eventEmitterWrapper
	logger     ports.Logger
	plugins    []Plugin

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe []func()
}

// New creates a Service in StateStopped; call Start() to run it.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions(&http.Client{Timeout: cfg.HTTPTimeout})
	for _, opt := range opts {
		opt(&o)
	}

	lookup := o.lookup
	if lookup == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: api key is required", domain.ErrInvalidConfig)
		}
		lookup = flickr.NewClient(o.httpClient, cfg.Endpoint, cfg.APIKey, Version, o.logger)
	}
	lookup = cache.Wrap(lookup, cfg.CacheSize)
	memo, _ := lookup.(*cache.Memo)

	provider := o.provider
	if provider == nil {
		provider = NewManualProvider(domain.PermissionGranted)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	machine := app.NewMachine(app.MachineConfig{
		DebounceWindow: cfg.DebounceWindow,
		ResetOnRestart: cfg.ResetOnRestart,
	}, provider, lookup, o.logger, o.clock, emitter)
	provider.SetObserver(machine)

	return &Service{
		config:     cfg,
		lifecycle:  app.NewLifecycle(o.logger, emitter),
		machine:    machine,
		controller: &Controller{machine: machine},
		provider:   provider,
		repo:       o.repo,
		memo:       memo,
		emitter:    emitter,
		logger:     o.logger,
		plugins:    o.plugins,
	}, nil
}

// Controller returns the handle used to drive the fetch machine.
func (s *Service) Controller() *Controller {
	return s.controller
}

// Start runs the fetch machine in the background, restores the saved feed,
// applies the provider's current permission and initializes plugins.
// Tracking begins only when Controller().Start() is called.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	s.lifecycle.Go(func() {
		err := s.machine.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("fetch machine stopped", ports.Err(err))
			_ = s.lifecycle.Crash(err)
		}
	})

	if err := s.waitForMachine(runCtx); err != nil {
		return s.abortStart(err, "fetch machine did not start")
	}

	s.unsubscribe = append(s.unsubscribe, s.machine.Subscribe(s.emitter))

	if s.repo != nil {
		if err := s.restoreFeed(runCtx); err != nil {
			return s.abortStart(err, "feed restore failed")
		}
		writer := newFeedWriter(s.repo, s.logger)
		s.unsubscribe = append(s.unsubscribe, s.machine.Subscribe(app.ViewObserverFunc(
			func(_, current domain.ViewState, _ string) {
				if current.Kind == domain.ViewLoaded {
					writer.offer(s.machine.Feed())
				}
			})))
		s.lifecycle.Go(func() { writer.run(runCtx) })
	}

	if err := s.machine.RefreshPermission(); err != nil {
		return s.abortStart(err, "permission check failed")
	}

	manual, _ := s.provider.(*location.Manual)
	pluginCfg := PluginConfig{
		Controller: s.controller,
		Manual:     manual,
		Logger:     s.logger,
	}
	for i, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			s.shutdownPlugins(s.plugins[:i])
			return s.abortStart(err, "plugin init failed: "+p.Name())
		}
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	return s.lifecycle.TransitionTo(app.StateRunning, "machine running")
}

// Stop halts tracking, flushes the feed, shuts down plugins and waits up to
// 30 seconds for background work. Returns ErrShutdownTimeout if forced.
func (s *Service) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}

	if err := s.machine.Stop(); err != nil && !errors.Is(err, domain.ErrMachineClosed) {
		s.logger.Warn("stop tracking failed", ports.Err(err))
	}
	s.shutdownPlugins(s.plugins)
	s.release()
	s.logCacheStats()
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Service) Status() State {
	return convertState(s.lifecycle.State())
}

// LastError returns the error that crashed the service, if any.
func (s *Service) LastError() error {
	return s.lifecycle.LastError()
}

func (s *Service) waitForMachine(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	deadline := time.NewTimer(machineStartTimeout)
	defer deadline.Stop()

	for !s.machine.Running() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return domain.ErrMachineClosed
		case <-ticker.C:
		}
	}
	return nil
}

func (s *Service) restoreFeed(ctx context.Context) error {
	feed, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load feed: %w", err)
	}
	if feed.IsEmpty() {
		return nil
	}
	return s.machine.Restore(feed)
}

// abortStart undoes a partial Start. The caller holds s.mu.
func (s *Service) abortStart(err error, reason string) error {
	s.release()
	_ = s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	_ = s.lifecycle.Crash(fmt.Errorf("%s: %w", reason, err))
	return err
}

// release detaches observers and cancels the run context. The caller holds s.mu.
func (s *Service) release() {
	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.unsubscribe = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// CacheStats returns the lookup cache counters, or false when caching is
// disabled.
func (s *Service) CacheStats() (LookupCacheStats, bool) {
	if s.memo == nil {
		return LookupCacheStats{}, false
	}
	return s.memo.Stats(), true
}

func (s *Service) logCacheStats() {
	stats, ok := s.CacheStats()
	if !ok {
		return
	}
	s.logger.Info("lookup cache stats",
		ports.Int("entries", stats.Entries),
		ports.Uint64("hits", stats.Hits),
		ports.Uint64("misses", stats.Misses))
}

// shutdownPlugins shuts plugins down in reverse order.
func (s *Service) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}
