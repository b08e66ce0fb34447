package app

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/geophoto/internal/domain"
)

// updatePipeline implements the dedup and trailing-edge debounce steps for
// incoming positions. It is owned by the machine's event loop and is not safe
// for concurrent use; only the timer callback runs elsewhere, and it only
// reports the sequence number it was armed with.
type updatePipeline struct {
	window time.Duration
	clock  Clock
	onFire func(seq uint64)

	last    *domain.Position
	pending *domain.Position
	timer   clockwork.Timer
	seq     uint64
}

func newUpdatePipeline(window time.Duration, clock Clock) *updatePipeline {
	return &updatePipeline{window: window, clock: clock}
}

// offer runs a position through dedup and (re)arms the debounce timer.
// It returns false when the position was discarded as a duplicate.
func (p *updatePipeline) offer(pos domain.Position) bool {
	if p.last != nil && p.last.Equal(pos) {
		return false
	}
	accepted := pos
	p.last = &accepted
	p.pending = &accepted

	if p.timer != nil {
		p.timer.Stop()
	}
	p.seq++
	seq := p.seq
	fire := p.onFire
	p.timer = p.clock.AfterFunc(p.window, func() {
		if fire != nil {
			fire(seq)
		}
	})
	return true
}

// fire consumes the pending position if seq is the latest armed timer.
// Expirations of superseded timers report false.
func (p *updatePipeline) fire(seq uint64) (domain.Position, bool) {
	if seq != p.seq || p.pending == nil {
		return domain.Position{}, false
	}
	pos := *p.pending
	p.pending = nil
	p.timer = nil
	return pos, true
}

// reset drops the pending position and the dedup memory so the first fix of
// the next session is always accepted.
func (p *updatePipeline) reset() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.seq++
	p.last = nil
	p.pending = nil
}
