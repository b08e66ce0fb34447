package geophoto

import (
	"context"
	"time"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// flushTimeout bounds the final save on shutdown.
const flushTimeout = 5 * time.Second

// feedWriter saves feeds in the background. Only the most recent pending
// feed is kept; older ones are overwritten before they are written.
type feedWriter struct {
	repo    ports.FeedRepository
	logger  ports.Logger
	pending chan domain.Feed
}

func newFeedWriter(repo ports.FeedRepository, logger ports.Logger) *feedWriter {
	return &feedWriter{
		repo:    repo,
		logger:  logger,
		pending: make(chan domain.Feed, 1),
	}
}

// offer queues feed, replacing any feed not yet written. It never blocks.
func (w *feedWriter) offer(feed domain.Feed) {
	for {
		select {
		case w.pending <- feed:
			return
		default:
		}
		select {
		case <-w.pending:
		default:
		}
	}
}

// run writes queued feeds until ctx is done, then flushes what is left.
func (w *feedWriter) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			select {
			case feed := <-w.pending:
				w.flush(feed)
			default:
			}
			return
		case feed := <-w.pending:
			if ctx.Err() != nil {
				w.flush(feed)
				return
			}
			w.save(ctx, feed)
		}
	}
}

func (w *feedWriter) flush(feed domain.Feed) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	w.save(ctx, feed)
}

func (w *feedWriter) save(ctx context.Context, feed domain.Feed) {
	if err := w.repo.Save(ctx, feed); err != nil {
		w.logger.Error("save feed failed", ports.Int("photos", len(feed.Photos)), ports.Err(err))
		return
	}
	w.logger.Debug("feed saved", ports.Int("photos", len(feed.Photos)))
}
