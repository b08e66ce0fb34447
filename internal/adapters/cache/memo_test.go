package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// countingLookup returns a reference derived from the position.
type countingLookup struct {
	calls atomic.Int32
	fail  bool
	none  bool
	delay time.Duration
}

func (c *countingLookup) Lookup(ctx context.Context, pos domain.Position) (*domain.PhotoReference, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail {
		return nil, domain.NewLookupError(domain.LookupTransport, errors.New("down"))
	}
	if c.none {
		return nil, nil
	}
	ref := domain.PhotoReference("photo-" + pos.String())
	return &ref, nil
}

func TestMemo_CachesFoundAndNotFound(t *testing.T) {
	tests := []struct {
		name    string
		none    bool
		wantNil bool
	}{
		{"found", false, false},
		{"not found", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := &countingLookup{none: tt.none}
			m := NewMemo(upstream, 4)
			pos := domain.NewPosition(1, 2)

			for i := 0; i < 3; i++ {
				ref, err := m.Lookup(context.Background(), pos)
				if err != nil {
					t.Fatalf("Lookup() error = %v", err)
				}
				if (ref == nil) != tt.wantNil {
					t.Fatalf("Lookup() = %v, wantNil %v", ref, tt.wantNil)
				}
			}
			if n := upstream.calls.Load(); n != 1 {
				t.Errorf("upstream called %d times, want 1", n)
			}
			if s := m.Stats(); s.Hits != 2 || s.Misses != 1 {
				t.Errorf("Stats() = %+v, want 2 hits 1 miss", s)
			}
		})
	}
}

func TestMemo_DoesNotCacheErrors(t *testing.T) {
	upstream := &countingLookup{fail: true}
	m := NewMemo(upstream, 4)
	pos := domain.NewPosition(1, 2)

	for i := 0; i < 2; i++ {
		if _, err := m.Lookup(context.Background(), pos); err == nil {
			t.Fatal("Lookup() error = nil, want failure")
		}
	}
	if n := upstream.calls.Load(); n != 2 {
		t.Errorf("upstream called %d times, want 2", n)
	}
}

func TestMemo_EvictsLeastRecentlyUsed(t *testing.T) {
	upstream := &countingLookup{}
	m := NewMemo(upstream, 2)
	ctx := context.Background()
	a, b, c := domain.NewPosition(1, 1), domain.NewPosition(2, 2), domain.NewPosition(3, 3)

	_, _ = m.Lookup(ctx, a)
	_, _ = m.Lookup(ctx, b)
	_, _ = m.Lookup(ctx, a) // a is now most recent
	_, _ = m.Lookup(ctx, c) // evicts b

	if s := m.Stats(); s.Entries != 2 {
		t.Fatalf("Entries = %d, want 2", s.Entries)
	}

	before := upstream.calls.Load()
	_, _ = m.Lookup(ctx, a)
	if upstream.calls.Load() != before {
		t.Error("a was evicted")
	}
	_, _ = m.Lookup(ctx, b)
	if upstream.calls.Load() != before+1 {
		t.Error("b was not evicted")
	}
}

func TestMemo_ReturnsCopies(t *testing.T) {
	m := NewMemo(&countingLookup{}, 2)
	pos := domain.NewPosition(1, 1)

	ref, _ := m.Lookup(context.Background(), pos)
	*ref = "changed"

	again, _ := m.Lookup(context.Background(), pos)
	if *again == "changed" {
		t.Error("caller mutation reached the cache")
	}
}

func TestMemo_CoalescesConcurrentLookups(t *testing.T) {
	upstream := &countingLookup{delay: 50 * time.Millisecond}
	m := NewMemo(upstream, 4)
	pos := domain.NewPosition(5, 5)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Lookup(context.Background(), pos); err != nil {
				t.Errorf("Lookup() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := upstream.calls.Load(); n != 1 {
		t.Errorf("upstream called %d times, want 1", n)
	}
}

func TestWrap(t *testing.T) {
	upstream := &countingLookup{}
	if got := Wrap(upstream, 0); got != ports.PhotoLookup(upstream) {
		t.Error("Wrap with zero capacity did not return the upstream lookup")
	}
	if _, ok := Wrap(upstream, 8).(*Memo); !ok {
		t.Error("Wrap with capacity did not return a Memo")
	}
}
