package location

import (
	"sync"

	"github.com/bft-labs/geophoto/internal/domain"
)

// distanceGate drops fixes closer than minMeters to the last delivered fix.
type distanceGate struct {
	mu        sync.Mutex
	minMeters float64
	last      *domain.Position
}

func newDistanceGate(minMeters float64) *distanceGate {
	return &distanceGate{minMeters: minMeters}
}

// allow reports whether pos should be delivered and records it if so.
func (g *distanceGate) allow(pos domain.Position) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.minMeters > 0 && g.last != nil && g.last.DistanceTo(pos) < g.minMeters {
		return false
	}
	p := pos
	g.last = &p
	return true
}

// reset forgets the last fix, so the next one is always delivered.
func (g *distanceGate) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = nil
}
