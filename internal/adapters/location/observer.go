package location

import (
	"sync"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// observerSlot holds the registered observer and the distance gate shared by
// all providers. Deliveries with no observer registered are dropped.
type observerSlot struct {
	mu       sync.RWMutex
	observer ports.LocationObserver
	gate     *distanceGate
}

func newObserverSlot(opts ports.TrackingOptions) *observerSlot {
	return &observerSlot{gate: newDistanceGate(opts.DistanceFilter)}
}

func (s *observerSlot) set(o ports.LocationObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

func (s *observerSlot) get() ports.LocationObserver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observer
}

// position delivers pos if it passes the distance gate. It reports whether
// the fix was delivered.
func (s *observerSlot) position(pos domain.Position) bool {
	o := s.get()
	if o == nil || !s.gate.allow(pos) {
		return false
	}
	o.OnPositionUpdate(pos)
	return true
}

func (s *observerSlot) permission(status domain.PermissionStatus) {
	if o := s.get(); o != nil {
		o.OnPermissionStatusChanged(status)
	}
}

// authorization answers RequestAuthorization. An undetermined status is
// never reported back: the machine would only request again.
func (s *observerSlot) authorization(status domain.PermissionStatus) {
	if status == domain.PermissionUndetermined {
		return
	}
	s.permission(status)
}

func (s *observerSlot) failure(err error) {
	if o := s.get(); o != nil {
		o.OnLocationError(err)
	}
}

// apply delivers a decoded track event. setStatus records permission events
// on the provider before they are reported. It returns false for a fix
// dropped by the distance gate.
func (s *observerSlot) apply(ev decodedEvent, setStatus func(domain.PermissionStatus)) bool {
	switch ev.kind {
	case eventPosition:
		return s.position(ev.position)
	case eventPermission:
		setStatus(ev.permission)
		s.permission(ev.permission)
	case eventError:
		s.failure(ev.err)
	}
	return true
}
