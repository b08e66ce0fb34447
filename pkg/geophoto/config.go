package geophoto

import (
	"fmt"
	"time"

	"github.com/bft-labs/geophoto/internal/adapters/flickr"
	"github.com/bft-labs/geophoto/internal/app"
	"github.com/bft-labs/geophoto/internal/domain"
)

// Config holds the service configuration.
// Use SetDefaults to fill unset fields before Validate.
type Config struct {
	// APIKey authenticates Flickr requests. Required unless a custom
	// PhotoLookup is supplied with WithPhotoLookup.
	APIKey string

	// Endpoint is the Flickr REST endpoint.
	// Default: https://www.flickr.com/services/rest/
	Endpoint string

	// HTTPTimeout bounds each lookup request.
	// Default: 15 seconds
	HTTPTimeout time.Duration

	// DebounceWindow is how long positions must settle before a lookup.
	// Default: 1 second
	DebounceWindow time.Duration

	// ResetOnRestart clears accumulated photos when Start begins a new
	// tracking session.
	ResetOnRestart bool

	// CacheSize bounds the lookup memo. Zero disables it.
	CacheSize int
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = flickr.DefaultEndpoint
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.DebounceWindow == 0 {
		c.DebounceWindow = app.DefaultDebounceWindow
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("%w: http timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.DebounceWindow < 0 {
		return fmt.Errorf("%w: debounce window must not be negative", domain.ErrInvalidConfig)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache size must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
