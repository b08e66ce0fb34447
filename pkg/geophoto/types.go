package geophoto

import (
	"github.com/bft-labs/geophoto/internal/adapters/cache"
	"github.com/bft-labs/geophoto/internal/adapters/location"
	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// Domain types re-exported for callers outside this module.
type (
	// Position is a geographic coordinate in decimal degrees.
	Position = domain.Position

	// PhotoReference is the URL of a resolved photo.
	PhotoReference = domain.PhotoReference

	// Feed is the accumulated photo list, newest first.
	Feed = domain.Feed

	// ViewState is the observable presentation state.
	ViewState = domain.ViewState

	// ViewKind discriminates ViewState.
	ViewKind = domain.ViewKind

	// PermissionStatus is the location authorization state.
	PermissionStatus = domain.PermissionStatus

	// LookupCacheStats holds the lookup cache counters.
	LookupCacheStats = cache.Stats
)

// View kinds.
const (
	ViewReady          = domain.ViewReady
	ViewLoading        = domain.ViewLoading
	ViewLoaded         = domain.ViewLoaded
	ViewDeniedLocation = domain.ViewDeniedLocation
	ViewStopSharing    = domain.ViewStopSharing
	ViewError          = domain.ViewError
)

// Permission statuses.
const (
	PermissionUndetermined = domain.PermissionUndetermined
	PermissionGranted      = domain.PermissionGranted
	PermissionDenied       = domain.PermissionDenied
)

// Ports re-exported so callers can supply their own implementations.
type (
	// LocationProvider is a source of position fixes.
	LocationProvider = ports.LocationProvider

	// LocationObserver receives provider callbacks.
	LocationObserver = ports.LocationObserver

	// PhotoLookup resolves a position to at most one photo.
	PhotoLookup = ports.PhotoLookup

	// FeedRepository persists the feed between runs.
	FeedRepository = ports.FeedRepository

	// HTTPClient is the interface for making HTTP requests.
	// *http.Client satisfies this interface.
	HTTPClient = ports.HTTPClient

	// Logger is the interface for structured logging.
	Logger = ports.Logger

	// LogField represents a structured log field.
	LogField = ports.Field

	// ManualProvider is an in-memory LocationProvider fed by Push and
	// SetPermission.
	ManualProvider = location.Manual
)

// NewPosition returns a Position for the given latitude and longitude.
func NewPosition(lat, lon float64) Position {
	return domain.NewPosition(lat, lon)
}

// ParsePermissionStatus parses "granted", "denied" or "undetermined" and
// the platform spellings of each.
func ParsePermissionStatus(s string) (PermissionStatus, error) {
	return domain.ParsePermissionStatus(s)
}

// NewManualProvider returns a ManualProvider reporting status, with the
// default tracking options.
func NewManualProvider(status PermissionStatus) *ManualProvider {
	return location.NewManual(status, ports.DefaultTrackingOptions())
}

// Errors returned by the service and its controller.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrMachineClosed    = domain.ErrMachineClosed
	ErrNotStopped       = domain.ErrNotStopped
	ErrPermissionDenied = domain.ErrPermissionDenied

	// ErrNotTracking is returned by ManualProvider.Push while tracking is stopped.
	ErrNotTracking = location.ErrNotTracking

	// ErrInvalidPosition is returned by ManualProvider.Push for out-of-range coordinates.
	ErrInvalidPosition = location.ErrInvalidPosition
)
