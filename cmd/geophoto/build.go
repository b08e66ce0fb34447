package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bft-labs/geophoto/internal/adapters/fs"
	"github.com/bft-labs/geophoto/internal/adapters/location"
	"github.com/bft-labs/geophoto/internal/adapters/s3"
	"github.com/bft-labs/geophoto/internal/cliconfig"
	"github.com/bft-labs/geophoto/internal/ports"
	"github.com/bft-labs/geophoto/pkg/geophoto"
	"github.com/bft-labs/geophoto/pkg/log"
	"github.com/bft-labs/geophoto/plugins/configwatcher"
)

// source is a configured location provider plus its teardown.
type source struct {
	provider geophoto.LocationProvider
	closer   func() error
	finished <-chan struct{}
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// done fires when a replay track is exhausted. It never fires unless once
// is set.
func (s *source) done(once bool) <-chan struct{} {
	if !once {
		return nil
	}
	return s.finished
}

func newProvider(cfg cliconfig.Config, logger geophoto.Logger) (*source, error) {
	status, err := geophoto.ParsePermissionStatus(cfg.Permission)
	if err != nil {
		return nil, err
	}
	opts := ports.DefaultTrackingOptions()
	if cfg.DistanceFilter > 0 {
		opts.DistanceFilter = cfg.DistanceFilter
	}

	switch cfg.Provider {
	case cliconfig.ProviderReplay:
		r := location.NewReplay(location.ReplayConfig{
			Path:    cfg.ReplayPath,
			Follow:  cfg.Follow,
			Status:  status,
			Options: opts,
		}, log.Named(logger, "replay"))
		return &source{provider: r, closer: r.Close, finished: r.Done()}, nil

	case cliconfig.ProviderKafka:
		kc := location.KafkaConfig{
			Brokers: cfg.Brokers(),
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroup,
			Status:  status,
			Options: opts,
		}
		k := location.NewKafka(kc, location.NewKafkaReader(kc), log.Named(logger, "kafka"))
		return &source{provider: k, closer: k.Close}, nil

	case cliconfig.ProviderManual:
		return &source{provider: location.NewManual(status, opts)}, nil

	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// newFeedRepository returns nil when the feed is not persisted.
func newFeedRepository(cfg cliconfig.Config, logger geophoto.Logger) (geophoto.FeedRepository, error) {
	switch cfg.FeedStore {
	case cliconfig.FeedStoreNone:
		return nil, nil
	case cliconfig.FeedStoreFile:
		return fs.NewFeedFileRepository(cfg.StateDir), nil
	case cliconfig.FeedStoreS3:
		store, err := s3.NewFeedStore(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Name:      cfg.FeedName,
		}, log.Named(logger, "s3"))
		if err != nil {
			return nil, fmt.Errorf("feed store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown feed store %q", cfg.FeedStore)
	}
}

// viewLogger logs view transitions and lookups and remembers when the
// machine last did something.
type viewLogger struct {
	geophoto.BaseEventHandler
	logger geophoto.Logger
	last   atomic.Int64
}

func newViewLogger(logger geophoto.Logger) *viewLogger {
	v := &viewLogger{logger: logger}
	v.touch()
	return v
}

func (v *viewLogger) touch() { v.last.Store(time.Now().UnixNano()) }

// settle returns once no view change or lookup has happened for quiet, or
// after limit.
func (v *viewLogger) settle(ctx context.Context, quiet, limit time.Duration) {
	deadline := time.Now().Add(limit)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for time.Now().Before(deadline) {
		if time.Since(time.Unix(0, v.last.Load())) >= quiet {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (v *viewLogger) OnViewChange(e geophoto.ViewChangeEvent) {
	v.touch()
	fields := []log.Field{
		log.Stringer("from", e.Previous.Kind),
		log.Stringer("to", e.Current.Kind),
		log.Int("photos", len(e.Current.Photos)),
	}
	if e.Reason != "" {
		fields = append(fields, log.String("reason", e.Reason))
	}
	if e.Current.Message != "" {
		fields = append(fields, log.String("message", e.Current.Message))
	}
	v.logger.Info("view changed", fields...)
}

func (v *viewLogger) OnLookup(e geophoto.LookupEvent) {
	v.touch()
	fields := []log.Field{
		log.Stringer("position", e.Position),
		log.Duration("took", e.Duration),
	}
	switch {
	case e.Error != nil:
		fields = append(fields, log.Err(e.Error))
	case e.Photo != nil:
		fields = append(fields, log.String("photo", string(*e.Photo)))
	}
	v.logger.Debug("lookup", fields...)
}

func (v *viewLogger) OnStateChange(e geophoto.StateChangeEvent) {
	v.logger.Debug("service state", log.Stringer("from", e.Previous), log.Stringer("to", e.Current))
}

// levelReloader applies log_level changes from the config file.
func levelReloader(logger geophoto.Logger) func(configwatcher.Settings) {
	return func(s configwatcher.Settings) {
		if s.LogLevel == "" {
			return
		}
		log.SetGlobalLevel(s.LogLevel)
		logger.Info("log level changed", log.String("level", s.LogLevel))
	}
}

// crashed closes the returned channel once svc reports StateCrashed.
func crashed(ctx context.Context, svc *geophoto.Service) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if svc.Status() == geophoto.StateCrashed {
					close(ch)
					return
				}
			}
		}
	}()
	return ch
}
