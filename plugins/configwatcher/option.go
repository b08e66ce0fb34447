package configwatcher

import "github.com/bft-labs/geophoto/pkg/geophoto"

// WithConfigWatcher returns a geophoto Option that reloads settings from
// cfg.Path when it changes.
//
// Usage:
//
//	svc, err := geophoto.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/home/me/.geophoto/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) geophoto.Option {
	return geophoto.WithPlugin(New(cfg))
}
