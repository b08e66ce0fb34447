package ports

import (
	"context"

	"github.com/bft-labs/geophoto/internal/domain"
)

// PhotoLookup resolves a position to the nearest photo.
type PhotoLookup interface {
	// Lookup returns the photo nearest to pos, or nil when none exists.
	// Failures are returned as *domain.LookupError.
	Lookup(ctx context.Context, pos domain.Position) (*domain.PhotoReference, error)
}

// PhotoLookupFunc adapts a function to PhotoLookup.
type PhotoLookupFunc func(ctx context.Context, pos domain.Position) (*domain.PhotoReference, error)

// Lookup calls f.
func (f PhotoLookupFunc) Lookup(ctx context.Context, pos domain.Position) (*domain.PhotoReference, error) {
	return f(ctx, pos)
}
