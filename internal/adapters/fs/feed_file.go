// Package fs persists the photo feed on the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

const (
	feedFileName = "feed.json"

	// feedFormat is bumped when the document layout changes.
	feedFormat = 1
)

// feedDocument is the on-disk layout of feed.json.
type feedDocument struct {
	Format int `json:"format"`
	domain.Feed
}

// FeedFileRepository implements ports.FeedRepository using a JSON file.
type FeedFileRepository struct {
	dir string
}

// NewFeedFileRepository creates a repository storing feed.json in dir.
func NewFeedFileRepository(dir string) *FeedFileRepository {
	return &FeedFileRepository{dir: dir}
}

// Load retrieves the last saved feed.
// Returns an empty feed and nil error if no feed file exists.
func (r *FeedFileRepository) Load(ctx context.Context) (domain.Feed, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Feed{}, nil
		}
		return domain.Feed{}, err
	}

	var doc feedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Feed{}, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	if doc.Format > feedFormat {
		return domain.Feed{}, fmt.Errorf("%s: unsupported format %d", r.Path(), doc.Format)
	}
	return doc.Feed.Normalized(), nil
}

// Save persists the feed atomically (temp file, then rename).
func (r *FeedFileRepository) Save(ctx context.Context, feed domain.Feed) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(feedDocument{Format: feedFormat, Feed: feed}, "", "  ")
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the feed file.
func (r *FeedFileRepository) Path() string {
	return filepath.Join(r.dir, feedFileName)
}

var _ ports.FeedRepository = (*FeedFileRepository)(nil)
