// Package flickr implements photo lookup against the Flickr REST API.
package flickr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// DefaultEndpoint is the Flickr REST endpoint.
const DefaultEndpoint = "https://www.flickr.com/services/rest/"

const (
	searchMethod = "flickr.photos.search"
	perPage      = "1"
	format       = "json"

	// maxBodyBytes bounds how much of a response is read.
	maxBodyBytes = 1 << 20
)

var errMissingAPIKey = errors.New("missing api key")

// Client implements ports.PhotoLookup using flickr.photos.search.
type Client struct {
	client    ports.HTTPClient
	endpoint  string
	apiKey    string
	userAgent string
	logger    ports.Logger
}

// NewClient creates a Flickr lookup client. An empty endpoint uses
// DefaultEndpoint.
func NewClient(client ports.HTTPClient, endpoint, apiKey, version string, logger ports.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		client:    client,
		endpoint:  endpoint,
		apiKey:    apiKey,
		userAgent: fmt.Sprintf("geophoto/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH),
		logger:    logger,
	}
}

// Lookup returns the first photo Flickr reports near pos, or nil when the
// result page is empty.
func (c *Client) Lookup(ctx context.Context, pos domain.Position) (*domain.PhotoReference, error) {
	req, err := c.newRequest(ctx, pos)
	if err != nil {
		return nil, domain.NewLookupError(domain.LookupInvalidRequest, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, domain.NewLookupError(domain.LookupTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewLookupError(domain.LookupTransport, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode/100 != 2 {
		return nil, domain.NewLookupError(domain.LookupTransport,
			fmt.Errorf("server returned %d: %s", resp.StatusCode, truncate(body, 200)))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, domain.NewLookupError(domain.LookupDecoding, err)
	}
	if parsed.Stat == "fail" {
		return nil, domain.NewLookupError(domain.LookupDecoding,
			fmt.Errorf("flickr error %d: %s", parsed.Code, parsed.Message))
	}
	if parsed.Photos == nil {
		return nil, domain.NewLookupError(domain.LookupDecoding, errors.New("response has no photos member"))
	}

	if len(parsed.Photos.Photo) == 0 {
		c.logger.Debug("flickr returned no photos", ports.String("position", pos.String()))
		return nil, nil
	}
	ref := parsed.Photos.Photo[0].Reference()
	return &ref, nil
}

func (c *Client) newRequest(ctx context.Context, pos domain.Position) (*http.Request, error) {
	if c.apiKey == "" {
		return nil, errMissingAPIKey
	}
	if !pos.Valid() {
		return nil, fmt.Errorf("coordinates out of range: %s", pos)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q is not absolute", c.endpoint)
	}

	q := u.Query()
	q.Set("method", searchMethod)
	q.Set("api_key", c.apiKey)
	q.Set("lat", strconv.FormatFloat(pos.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(pos.Longitude, 'f', -1, 64))
	q.Set("per_page", perPage)
	q.Set("format", format)
	q.Set("nojsoncallback", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ ports.PhotoLookup = (*Client)(nil)
