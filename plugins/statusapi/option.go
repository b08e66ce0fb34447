package statusapi

import "github.com/bft-labs/geophoto/pkg/geophoto"

// WithStatusAPI returns a geophoto Option that serves the status API.
//
// Usage:
//
//	svc, err := geophoto.New(cfg,
//	    statusapi.WithStatusAPI(statusapi.Config{Addr: ":8090"}),
//	)
func WithStatusAPI(cfg Config) geophoto.Option {
	return geophoto.WithPlugin(New(cfg))
}

// WithDefaultStatusAPI serves the status API on 127.0.0.1:8090.
func WithDefaultStatusAPI() geophoto.Option {
	return WithStatusAPI(DefaultConfig())
}
