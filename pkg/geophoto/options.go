package geophoto

import (
	"github.com/bft-labs/geophoto/internal/app"
	"github.com/bft-labs/geophoto/pkg/log"
)

// Option configures optional behavior of a Service.
type Option func(*options)

// options holds the optional configuration for a Service instance.
type options struct {
	httpClient   HTTPClient
	logger       Logger
	eventHandler EventHandler
	provider     LocationProvider
	lookup       PhotoLookup
	repo         FeedRepository
	plugins      []Plugin
	clock        app.Clock
}

func defaultOptions(client HTTPClient) options {
	return options{
		httpClient: client,
		logger:     log.NoopLogger{},
	}
}

// WithHTTPClient sets the HTTP client used for Flickr lookups.
// If not provided, a client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for service events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithLocationProvider sets the source of position fixes.
// If not provided, a ManualProvider reporting PermissionGranted is used.
func WithLocationProvider(provider LocationProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithPhotoLookup replaces the Flickr client. The lookup cache configured by
// Config.CacheSize still wraps it.
func WithPhotoLookup(lookup PhotoLookup) Option {
	return func(o *options) {
		o.lookup = lookup
	}
}

// WithFeedRepository persists the feed. It is loaded on Start and saved in
// the background after every new photo.
func WithFeedRepository(repo FeedRepository) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// WithPlugin registers a plugin to be initialized when the service starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// withClock drives debounce timing from tests.
func withClock(clock app.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}
