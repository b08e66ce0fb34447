package domain

import "time"

// PhotoReference is the resource locator of one resolved photo.
// Two references are the same photo exactly when their strings are equal.
type PhotoReference string

// String returns the locator.
func (r PhotoReference) String() string {
	return string(r)
}

// Feed is the accumulated photo sequence, newest first.
// It is the unit persisted by a FeedRepository.
type Feed struct {
	// Photos is ordered most recent first and holds no duplicates
	Photos []PhotoReference `json:"photos"`

	// UpdatedAt is when a photo was last prepended
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty returns true if the feed holds no photos.
func (f Feed) IsEmpty() bool {
	return len(f.Photos) == 0
}

// Normalized returns a copy of the feed with duplicates removed, keeping the
// first (most recent) occurrence of every reference.
func (f Feed) Normalized() Feed {
	seen := make(map[PhotoReference]struct{}, len(f.Photos))
	photos := make([]PhotoReference, 0, len(f.Photos))
	for _, p := range f.Photos {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		photos = append(photos, p)
	}
	return Feed{Photos: photos, UpdatedAt: f.UpdatedAt}
}
