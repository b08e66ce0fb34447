package ports

import (
	"context"

	"github.com/bft-labs/geophoto/internal/domain"
)

// FeedRepository persists the accumulated photo feed between runs.
type FeedRepository interface {
	// Load retrieves the last saved feed.
	// Returns an empty feed and nil error if nothing has been saved yet.
	Load(ctx context.Context) (domain.Feed, error)

	// Save persists the feed, replacing the previous one.
	Save(ctx context.Context, feed domain.Feed) error
}
