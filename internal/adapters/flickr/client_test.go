package flickr

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/pkg/log"
)

const samplePage = `{
  "photos": {
    "page": 1, "pages": 120, "perpage": 1, "total": 120,
    "photo": [
      {"id": "53012345678", "owner": "1@N00", "secret": "abc123", "server": "65535",
       "farm": 66, "title": "Eiffel", "ispublic": 1, "isfriend": 0, "isfamily": 0}
    ]
  },
  "stat": "ok"
}`

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, <-chan *http.Request) {
	t.Helper()
	captured := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case captured <- r.Clone(context.Background()):
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestClient_Lookup_Found(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, samplePage)
	c := NewClient(srv.Client(), srv.URL+"/services/rest/", "key-1", "1.0.0", log.NoopLogger{})

	ref, err := c.Lookup(context.Background(), domain.NewPosition(48.8584, 2.2945))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	want := domain.PhotoReference("https://farm66.staticflickr.com/65535/53012345678_abc123.jpg")
	if ref == nil || *ref != want {
		t.Fatalf("Lookup() = %v, want %s", ref, want)
	}

	captured := <-requests
	q := captured.URL.Query()
	checks := map[string]string{
		"method":         "flickr.photos.search",
		"api_key":        "key-1",
		"lat":            "48.8584",
		"lon":            "2.2945",
		"per_page":       "1",
		"format":         "json",
		"nojsoncallback": "1",
	}
	for k, v := range checks {
		if got := q.Get(k); got != v {
			t.Errorf("query %s = %q, want %q", k, got, v)
		}
	}
	if captured.URL.Path != "/services/rest/" {
		t.Errorf("path = %s", captured.URL.Path)
	}
	if ua := captured.Header.Get("User-Agent"); !strings.HasPrefix(ua, "geophoto/1.0.0") {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestClient_Lookup_Empty(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"photos":{"photo":[]},"stat":"ok"}`)
	c := NewClient(srv.Client(), srv.URL, "key", "1.0.0", log.NoopLogger{})

	ref, err := c.Lookup(context.Background(), domain.NewPosition(0, 0))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if ref != nil {
		t.Errorf("Lookup() = %v, want nil", *ref)
	}
}

func TestClient_Lookup_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		endpoint   string
		apiKey     string
		pos        domain.Position
		wantKind   domain.LookupErrorKind
		wantPrefix string
	}{
		{
			name: "server error", status: http.StatusInternalServerError, body: "oops",
			apiKey: "key", pos: domain.NewPosition(1, 1),
			wantKind: domain.LookupTransport, wantPrefix: "Transport Error: server returned 500",
		},
		{
			name: "not json", status: http.StatusOK, body: "<html>",
			apiKey: "key", pos: domain.NewPosition(1, 1),
			wantKind: domain.LookupDecoding, wantPrefix: "Decoding Error:",
		},
		{
			name: "stat fail", status: http.StatusOK, body: `{"stat":"fail","code":100,"message":"Invalid API Key"}`,
			apiKey: "key", pos: domain.NewPosition(1, 1),
			wantKind: domain.LookupDecoding, wantPrefix: "Decoding Error: flickr error 100: Invalid API Key",
		},
		{
			name: "missing photos", status: http.StatusOK, body: `{"stat":"ok"}`,
			apiKey: "key", pos: domain.NewPosition(1, 1),
			wantKind: domain.LookupDecoding, wantPrefix: "Decoding Error:",
		},
		{
			name: "missing api key", status: http.StatusOK, body: samplePage,
			pos:      domain.NewPosition(1, 1),
			wantKind: domain.LookupInvalidRequest, wantPrefix: "Invalid Request",
		},
		{
			name: "invalid coordinates", status: http.StatusOK, body: samplePage,
			apiKey: "key", pos: domain.NewPosition(95, 1),
			wantKind: domain.LookupInvalidRequest, wantPrefix: "Invalid Request",
		},
		{
			name: "relative endpoint", status: http.StatusOK, body: samplePage,
			endpoint: "services/rest", apiKey: "key", pos: domain.NewPosition(1, 1),
			wantKind: domain.LookupInvalidRequest, wantPrefix: "Invalid Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			endpoint := srv.URL
			if tt.endpoint != "" {
				endpoint = tt.endpoint
			}
			c := NewClient(srv.Client(), endpoint, tt.apiKey, "1.0.0", log.NoopLogger{})

			ref, err := c.Lookup(context.Background(), tt.pos)
			if ref != nil {
				t.Errorf("Lookup() ref = %v, want nil", *ref)
			}
			var le *domain.LookupError
			if !errors.As(err, &le) {
				t.Fatalf("Lookup() error = %v, want *LookupError", err)
			}
			if le.Kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", le.Kind, tt.wantKind)
			}
			if !strings.HasPrefix(le.Error(), tt.wantPrefix) {
				t.Errorf("message = %q, want prefix %q", le.Error(), tt.wantPrefix)
			}
		})
	}
}

// failingClient always returns a transport error.
type failingClient struct{ err error }

func (f failingClient) Do(*http.Request) (*http.Response, error) { return nil, f.err }

func TestClient_Lookup_TransportFailure(t *testing.T) {
	c := NewClient(failingClient{err: errors.New("connection refused")}, "", "key", "1.0.0", log.NoopLogger{})

	_, err := c.Lookup(context.Background(), domain.NewPosition(1, 1))
	var le *domain.LookupError
	if !errors.As(err, &le) || le.Kind != domain.LookupTransport {
		t.Fatalf("Lookup() error = %v, want transport LookupError", err)
	}
	if le.Error() != "Transport Error: connection refused" {
		t.Errorf("message = %q", le.Error())
	}
}
