package ports

import "github.com/bft-labs/geophoto/internal/domain"

// LocationObserver receives callbacks from a LocationProvider.
// Implementations must not block; the provider calls them from its own
// goroutine.
type LocationObserver interface {
	// OnPositionUpdate delivers a new fix.
	OnPositionUpdate(pos domain.Position)

	// OnPermissionStatusChanged delivers an authorization change.
	OnPermissionStatusChanged(status domain.PermissionStatus)

	// OnLocationError reports a sensor or source failure.
	OnLocationError(err error)
}

// LocationProvider is a source of position fixes.
type LocationProvider interface {
	// SetObserver registers the receiver of all callbacks. It replaces any
	// previously registered observer.
	SetObserver(observer LocationObserver)

	// AuthorizationStatus returns the current permission status.
	AuthorizationStatus() domain.PermissionStatus

	// RequestAuthorization asks for permission. The outcome, if any, arrives
	// through OnPermissionStatusChanged.
	RequestAuthorization()

	// StartTracking begins emitting fixes.
	StartTracking()

	// StopTracking halts emission. Calling it while not tracking is a no-op.
	StopTracking()
}

// TrackingOptions are consumed by providers; they do not alter the fetch
// machine's logic.
type TrackingOptions struct {
	// DistanceFilter is the minimum distance in meters between delivered fixes.
	// Zero delivers every fix.
	DistanceFilter float64

	// DesiredAccuracy is advisory, e.g. "best" or "hundred_meters"
	DesiredAccuracy string

	// PausesAutomatically lets the source suspend delivery when stationary
	PausesAutomatically bool

	// AllowsBackground keeps delivering while the host is in the background
	AllowsBackground bool
}

// DefaultTrackingOptions returns the options the original application used.
func DefaultTrackingOptions() TrackingOptions {
	return TrackingOptions{
		DistanceFilter:      100,
		DesiredAccuracy:     "best",
		PausesAutomatically: false,
		AllowsBackground:    true,
	}
}
