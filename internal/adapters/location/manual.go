package location

import (
	"errors"
	"sync"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

var (
	// ErrNotTracking is returned by Manual.Push while tracking is stopped.
	ErrNotTracking = errors.New("geophoto: provider is not tracking")

	// ErrInvalidPosition is returned for coordinates outside the valid range.
	ErrInvalidPosition = errors.New("geophoto: position out of range")
)

// Manual is an in-memory provider fed by Push and SetPermission.
type Manual struct {
	slot *observerSlot

	mu       sync.Mutex
	status   domain.PermissionStatus
	tracking bool
}

// NewManual creates a Manual provider with the given authorization status.
func NewManual(status domain.PermissionStatus, opts ports.TrackingOptions) *Manual {
	return &Manual{slot: newObserverSlot(opts), status: status}
}

// SetObserver implements ports.LocationProvider.
func (m *Manual) SetObserver(o ports.LocationObserver) { m.slot.set(o) }

// AuthorizationStatus implements ports.LocationProvider.
func (m *Manual) AuthorizationStatus() domain.PermissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// RequestAuthorization re-reports the current status unless it is still
// undetermined, which would only ask again.
func (m *Manual) RequestAuthorization() {
	m.slot.authorization(m.AuthorizationStatus())
}

// StartTracking implements ports.LocationProvider.
func (m *Manual) StartTracking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking = true
	m.slot.gate.reset()
}

// StopTracking implements ports.LocationProvider.
func (m *Manual) StopTracking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracking = false
}

// Tracking reports whether StartTracking is in effect.
func (m *Manual) Tracking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracking
}

// Push delivers a fix. It returns false when the distance filter dropped it.
func (m *Manual) Push(pos domain.Position) (bool, error) {
	if !pos.Valid() {
		return false, ErrInvalidPosition
	}
	if !m.Tracking() {
		return false, ErrNotTracking
	}
	return m.slot.position(pos), nil
}

// SetPermission changes the authorization status and reports it.
func (m *Manual) SetPermission(status domain.PermissionStatus) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
	m.slot.permission(status)
}

// Fail reports a sensor error.
func (m *Manual) Fail(err error) {
	m.slot.failure(err)
}

var _ ports.LocationProvider = (*Manual)(nil)
