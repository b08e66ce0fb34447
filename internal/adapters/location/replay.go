package location

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// ReplayConfig configures a Replay provider.
type ReplayConfig struct {
	// Path is the JSON Lines track file.
	Path string

	// Follow keeps watching the file for appended lines after EOF.
	Follow bool

	// Status is the authorization status reported until the track file
	// changes it with a permission event.
	Status domain.PermissionStatus

	// Options are the tracking options; DistanceFilter is enforced.
	Options ports.TrackingOptions
}

// Replay plays back a recorded track file.
//
// The read offset survives StopTracking, so a later StartTracking continues
// where playback stopped.
type Replay struct {
	cfg    ReplayConfig
	slot   *observerSlot
	logger ports.Logger

	mu       sync.Mutex
	status   domain.PermissionStatus
	cancel   context.CancelFunc
	finished chan struct{}
	once     sync.Once

	// readMu serializes playback goroutines across Stop/Start cycles.
	readMu sync.Mutex
	offset int64
	wg     sync.WaitGroup
}

// NewReplay creates a Replay provider. The file is opened on StartTracking.
func NewReplay(cfg ReplayConfig, logger ports.Logger) *Replay {
	return &Replay{
		cfg:      cfg,
		slot:     newObserverSlot(cfg.Options),
		logger:   logger,
		status:   cfg.Status,
		finished: make(chan struct{}),
	}
}

// SetObserver implements ports.LocationProvider.
func (r *Replay) SetObserver(o ports.LocationObserver) { r.slot.set(o) }

// AuthorizationStatus implements ports.LocationProvider.
func (r *Replay) AuthorizationStatus() domain.PermissionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// RequestAuthorization reports the current status to the observer unless
// it is still undetermined.
func (r *Replay) RequestAuthorization() {
	r.slot.authorization(r.AuthorizationStatus())
}

// StartTracking begins playback in the background. It never blocks.
func (r *Replay) StartTracking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.slot.gate.reset()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.play(ctx)
	}()
}

// StopTracking halts playback. It does not wait for the playback goroutine,
// which may have one delivery in progress.
func (r *Replay) StopTracking() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Done is closed when a non-follow replay reaches the end of the file.
func (r *Replay) Done() <-chan struct{} {
	return r.finished
}

// Close stops playback and waits for it to exit.
func (r *Replay) Close() error {
	r.StopTracking()
	r.wg.Wait()
	return nil
}

func (r *Replay) play(ctx context.Context) {
	r.readMu.Lock()
	defer r.readMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	f, err := os.Open(r.cfg.Path)
	if err != nil {
		r.logger.Error("replay: open track file", ports.String("path", r.cfg.Path), ports.Err(err))
		r.slot.failure(fmt.Errorf("open track file: %w", err))
		return
	}
	defer f.Close()

	if _, err := f.Seek(r.offset, io.SeekStart); err != nil {
		r.slot.failure(fmt.Errorf("seek track file: %w", err))
		return
	}

	var watcher *fsnotify.Watcher
	if r.cfg.Follow {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			r.logger.Error("replay: failed to create watcher", ports.Err(err))
			return
		}
		defer watcher.Close()
		if err := watcher.Add(filepath.Dir(r.cfg.Path)); err != nil {
			r.logger.Error("replay: failed to watch directory", ports.Err(err))
			return
		}
	}

	r.logger.Info("replay started",
		ports.String("path", r.cfg.Path),
		ports.Int64("offset", r.offset),
		ports.Bool("follow", r.cfg.Follow),
	)

	reader := bufio.NewReader(f)
	var partial []byte
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 && line[len(line)-1] == '\n' {
			full := append(partial, line...)
			partial = nil
			if !r.deliver(ctx, bytes.TrimSpace(full)) {
				return
			}
			r.offset += int64(len(full))
			continue
		}
		// An unterminated tail is kept until its newline arrives.
		partial = append(partial, line...)

		if err != nil && !errors.Is(err, io.EOF) {
			r.slot.failure(fmt.Errorf("read track file: %w", err))
			return
		}
		if !r.cfg.Follow {
			if len(partial) > 0 {
				if !r.deliver(ctx, bytes.TrimSpace(partial)) {
					return
				}
				r.offset += int64(len(partial))
			}
			r.logger.Info("replay finished", ports.String("path", r.cfg.Path))
			r.once.Do(func() { close(r.finished) })
			return
		}
		if !r.waitForWrite(ctx, watcher) {
			return
		}
	}
}

// deliver decodes one line and hands it to the observer. It returns false
// when ctx ended.
func (r *Replay) deliver(ctx context.Context, line []byte) bool {
	if len(line) == 0 {
		return true
	}
	ev, err := decodeEvent(line)
	if err != nil {
		r.logger.Warn("replay: skipping malformed line", ports.Err(err))
		return true
	}
	if ev.wait > 0 && !sleepCtx(ctx, ev.wait) {
		return false
	}
	if ctx.Err() != nil {
		return false
	}

	if !r.slot.apply(ev, r.setStatus) {
		r.logger.Debug("replay: fix within distance filter", ports.String("position", ev.position.String()))
	}
	return true
}

func (r *Replay) setStatus(status domain.PermissionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *Replay) waitForWrite(ctx context.Context, watcher *fsnotify.Watcher) bool {
	name := filepath.Base(r.cfg.Path)
	for {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			return true
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			r.logger.Warn("replay: watcher error", ports.Err(err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ ports.LocationProvider = (*Replay)(nil)
