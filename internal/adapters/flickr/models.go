package flickr

import (
	"fmt"

	"github.com/bft-labs/geophoto/internal/domain"
)

// searchResponse is the flickr.photos.search JSON body.
type searchResponse struct {
	Photos *photoPage `json:"photos"`
	Stat   string     `json:"stat"`

	// Set when Stat is "fail".
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type photoPage struct {
	Photo []photo `json:"photo"`
}

type photo struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Farm   int    `json:"farm"`
	Server string `json:"server"`
	Secret string `json:"secret"`
}

// Reference returns the static image URL of the photo.
func (p photo) Reference() domain.PhotoReference {
	return domain.PhotoReference(fmt.Sprintf("https://farm%d.staticflickr.com/%s/%s_%s.jpg",
		p.Farm, p.Server, p.ID, p.Secret))
}
