// Package statusapi serves a geophoto fetch machine over HTTP.
// It exposes the current view state, the start/stop/resume operations and a
// WebSocket stream of view changes. When the service runs on a
// ManualProvider, positions and permission changes can be posted too.
package statusapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
)

// Config holds configuration options for the status API plugin.
type Config struct {
	// Addr is the TCP address to listen on.
	// Default: 127.0.0.1:8090
	Addr string

	// ShutdownTimeout bounds graceful server shutdown.
	// Default: 5 seconds
	ShutdownTimeout time.Duration

	// StreamBuffer is the number of undelivered messages a stream client may
	// hold before it is disconnected.
	// Default: 16
	StreamBuffer int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8090",
		ShutdownTimeout: 5 * time.Second,
		StreamBuffer:    16,
	}
}

// Plugin implements geophoto.Plugin.
type Plugin struct {
	cfg Config

	mu          sync.Mutex
	logger      geophoto.Logger
	server      *http.Server
	addr        net.Addr
	hub         *hub
	unsubscribe func()
	wg          sync.WaitGroup
}

// New creates a status API plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.StreamBuffer <= 0 {
		cfg.StreamBuffer = def.StreamBuffer
	}
	return &Plugin{cfg: cfg, logger: log.NoopLogger{}}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statusapi"
}

// Initialize binds the listener and starts serving.
func (p *Plugin) Initialize(ctx context.Context, cfg geophoto.PluginConfig) error {
	ln, err := net.Listen("tcp", p.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", p.cfg.Addr, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}
	h := newHub(p.cfg.StreamBuffer, logger)
	unsubscribe := cfg.Controller.Subscribe(func(e geophoto.ViewChangeEvent) {
		h.broadcast(e.Current)
	})
	server := &http.Server{
		Handler:           newRouter(cfg.Controller, cfg.Manual, h, logger),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	p.mu.Lock()
	p.logger = logger
	p.server = server
	p.addr = ln.Addr()
	p.hub = h
	p.unsubscribe = unsubscribe
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status api stopped", log.Err(err))
		}
	}()

	logger.Info("status api listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound listen address, or "" before Initialize.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addr == nil {
		return ""
	}
	return p.addr.String()
}

// Shutdown closes stream clients and stops the server.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	server, h, unsubscribe := p.server, p.hub, p.unsubscribe
	p.server, p.hub, p.unsubscribe, p.addr = nil, nil, nil, nil
	p.mu.Unlock()

	if server == nil {
		return nil
	}
	unsubscribe()
	h.close()

	shutdownCtx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	p.wg.Wait()
	return err
}

var _ geophoto.Plugin = (*Plugin)(nil)
