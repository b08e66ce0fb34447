// Package cache memoizes photo lookups by exact position.
package cache

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// Memo wraps a PhotoLookup with a bounded LRU keyed by exact position.
// Found and not-found results are cached; errors are not. Concurrent
// lookups for the same position share one upstream call.
type Memo struct {
	next    ports.PhotoLookup
	group   singleflight.Group
	entries *lru.Cache[domain.Position, *domain.PhotoReference]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// NewMemo creates a Memo holding at most capacity results. A capacity below
// one is raised to one.
func NewMemo(next ports.PhotoLookup, capacity int) *Memo {
	if capacity < 1 {
		capacity = 1
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[domain.Position, *domain.PhotoReference](capacity)
	return &Memo{next: next, entries: entries}
}

// Wrap returns next unchanged when capacity is zero or negative, otherwise a
// Memo around it.
func Wrap(next ports.PhotoLookup, capacity int) ports.PhotoLookup {
	if capacity <= 0 {
		return next
	}
	return NewMemo(next, capacity)
}

// Lookup implements ports.PhotoLookup.
func (m *Memo) Lookup(ctx context.Context, pos domain.Position) (*domain.PhotoReference, error) {
	if ref, ok := m.get(pos); ok {
		return ref, nil
	}

	v, err, _ := m.group.Do(pos.String(), func() (any, error) {
		if ref, ok := m.peek(pos); ok {
			return ref, nil
		}
		ref, err := m.next.Lookup(ctx, pos)
		if err != nil {
			return nil, err
		}
		m.put(pos, ref)
		return ref, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.(*domain.PhotoReference)), nil
}

// Stats returns the current counters.
func (m *Memo) Stats() Stats {
	return Stats{Entries: m.entries.Len(), Hits: m.hits.Load(), Misses: m.misses.Load()}
}

func (m *Memo) get(pos domain.Position) (*domain.PhotoReference, bool) {
	ref, ok := m.entries.Get(pos)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return clone(ref), true
}

// peek reads an entry without touching counters or recency.
func (m *Memo) peek(pos domain.Position) (*domain.PhotoReference, bool) {
	ref, ok := m.entries.Peek(pos)
	if !ok {
		return nil, false
	}
	return clone(ref), true
}

func (m *Memo) put(pos domain.Position, ref *domain.PhotoReference) {
	m.entries.Add(pos, clone(ref))
}

func clone(ref *domain.PhotoReference) *domain.PhotoReference {
	if ref == nil {
		return nil
	}
	r := *ref
	return &r
}

var _ ports.PhotoLookup = (*Memo)(nil)
