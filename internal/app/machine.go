package app

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/bft-labs/geophoto/internal/domain"
	"github.com/bft-labs/geophoto/internal/ports"
)

// DefaultDebounceWindow is the quiescence window applied to position updates.
const DefaultDebounceWindow = time.Second

// defaultEventBuffer bounds the number of queued events before callers block.
const defaultEventBuffer = 64

// MachineConfig contains configuration for the fetch machine.
type MachineConfig struct {
	// DebounceWindow is how long positions must settle before a lookup.
	// Default: 1 second
	DebounceWindow time.Duration

	// ResetOnRestart clears accumulated photos when Start() begins a new
	// session. Resume() always keeps them.
	ResetOnRestart bool

	// EventBuffer is the capacity of the event queue.
	EventBuffer int
}

// ViewObserver is called on every ViewState transition, synchronously from
// the machine's event loop. Implementations must return quickly and must not
// call Start, Stop, Resume, Restore or RefreshPermission (they would deadlock).
type ViewObserver interface {
	OnViewChange(previous, current domain.ViewState, reason string)
}

// ViewObserverFunc adapts a function to ViewObserver.
type ViewObserverFunc func(previous, current domain.ViewState, reason string)

// OnViewChange calls f.
func (f ViewObserverFunc) OnViewChange(previous, current domain.ViewState, reason string) {
	f(previous, current, reason)
}

// LookupEmitter is called for every completed lookup, including results that
// are discarded as stale.
type LookupEmitter interface {
	OnLookup(pos domain.Position, ref *domain.PhotoReference, err error, duration time.Duration)
}

// Machine is the location-driven fetch state machine. It turns position and
// permission callbacks into a deduplicated, newest-first photo feed and a
// single observable ViewState.
//
// All mutation happens on the goroutine running Run. Public operations and
// provider callbacks hand events to that goroutine and are safe to call from
// anywhere.
type Machine struct {
	cfg      MachineConfig
	provider ports.LocationProvider
	lookup   ports.PhotoLookup
	logger   ports.Logger
	clock    Clock
	emitter  LookupEmitter

	events chan any

	loopMu   sync.RWMutex
	loopDone chan struct{}

	mu   sync.RWMutex
	view domain.ViewState
	feed domain.Feed

	obsMu     sync.Mutex
	observers map[int]ViewObserver
	nextObsID int

	// Owned by the event loop.
	runCtx   context.Context
	pipeline *updatePipeline
	photos   []domain.PhotoReference
	seen     map[domain.PhotoReference]struct{}
	epoch      uint64
	tracking   bool
	permission domain.PermissionStatus
	inflight   sync.WaitGroup
}

type opKind int

const (
	opStart opKind = iota
	opStop
	opResume
	opRestore
	opRefreshPermission
	opFlush
)

func (k opKind) String() string {
	switch k {
	case opStart:
		return "start"
	case opStop:
		return "stop"
	case opResume:
		return "resume"
	case opRestore:
		return "restore"
	case opRefreshPermission:
		return "refresh_permission"
	case opFlush:
		return "flush"
	default:
		return "unknown"
	}
}

type opEvent struct {
	kind  opKind
	feed  domain.Feed
	reply chan error
}

type permissionEvent struct{ status domain.PermissionStatus }

type positionEvent struct{ pos domain.Position }

type locationErrorEvent struct{ err error }

type debounceEvent struct{ seq uint64 }

type lookupEvent struct {
	epoch    uint64
	pos      domain.Position
	ref      *domain.PhotoReference
	err      error
	duration time.Duration
}

// NewMachine creates a machine in the ready state. Run must be called before
// any operation takes effect.
func NewMachine(
	cfg MachineConfig,
	provider ports.LocationProvider,
	lookup ports.PhotoLookup,
	logger ports.Logger,
	clock Clock,
	emitter LookupEmitter,
) *Machine {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if clock == nil {
		clock = RealClock()
	}
	m := &Machine{
		cfg:       cfg,
		provider:  provider,
		lookup:    lookup,
		logger:    logger,
		clock:     clock,
		emitter:   emitter,
		events:    make(chan any, cfg.EventBuffer),
		view:      domain.Ready(),
		observers: make(map[int]ViewObserver),
		seen:      make(map[domain.PhotoReference]struct{}),
	}
	m.pipeline = newUpdatePipeline(cfg.DebounceWindow, clock)
	return m
}

// Run executes the event loop until ctx is canceled.
// Lookups dispatched by the loop use ctx and are awaited before Run returns.
func (m *Machine) Run(ctx context.Context) error {
	m.loopMu.Lock()
	if m.loopDone != nil {
		m.loopMu.Unlock()
		return domain.ErrAlreadyRunning
	}
	done := make(chan struct{})
	m.loopDone = done
	m.loopMu.Unlock()

	m.runCtx = ctx
	m.pipeline.onFire = func(seq uint64) {
		m.send(done, debounceEvent{seq: seq})
	}

	defer func() {
		m.loopMu.Lock()
		m.loopDone = nil
		m.loopMu.Unlock()
		m.pipeline.reset()
		close(done)
		m.inflight.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-m.events:
			m.apply(done, ev)
		}
	}
}

// Start begins a tracking session.
func (m *Machine) Start() error {
	return m.call(opEvent{kind: opStart})
}

// Stop halts tracking and shows stopSharing.
func (m *Machine) Stop() error {
	return m.call(opEvent{kind: opStop})
}

// Resume restarts tracking from stopSharing, keeping accumulated photos.
func (m *Machine) Resume() error {
	return m.call(opEvent{kind: opResume})
}

// Restore seeds the accumulated photos, e.g. from a FeedRepository.
// Restored photos are shown on the next Start or Resume.
func (m *Machine) Restore(feed domain.Feed) error {
	return m.call(opEvent{kind: opRestore, feed: feed})
}

// RefreshPermission reads the provider's current authorization status and
// applies it as if it had been reported through OnPermissionStatusChanged.
func (m *Machine) RefreshPermission() error {
	return m.call(opEvent{kind: opRefreshPermission})
}

// flush waits until every event queued before it has been applied.
func (m *Machine) flush() error {
	return m.call(opEvent{kind: opFlush})
}

// OnPositionUpdate implements ports.LocationObserver.
func (m *Machine) OnPositionUpdate(pos domain.Position) {
	m.enqueue(positionEvent{pos: pos})
}

// OnPermissionStatusChanged implements ports.LocationObserver.
func (m *Machine) OnPermissionStatusChanged(status domain.PermissionStatus) {
	m.enqueue(permissionEvent{status: status})
}

// OnLocationError implements ports.LocationObserver.
func (m *Machine) OnLocationError(err error) {
	m.enqueue(locationErrorEvent{err: err})
}

// State returns a snapshot of the current ViewState.
func (m *Machine) State() domain.ViewState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view.Clone()
}

// Feed returns a snapshot of the accumulated photos, newest first.
func (m *Machine) Feed() domain.Feed {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return domain.Feed{Photos: slices.Clone(m.feed.Photos), UpdatedAt: m.feed.UpdatedAt}
}

// Subscribe registers an observer and returns a function that removes it.
func (m *Machine) Subscribe(observer ViewObserver) (unsubscribe func()) {
	m.obsMu.Lock()
	id := m.nextObsID
	m.nextObsID++
	m.observers[id] = observer
	m.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.obsMu.Lock()
			delete(m.observers, id)
			m.obsMu.Unlock()
		})
	}
}

// Running reports whether the event loop is accepting events.
func (m *Machine) Running() bool {
	return m.currentLoop() != nil
}

func (m *Machine) currentLoop() chan struct{} {
	m.loopMu.RLock()
	defer m.loopMu.RUnlock()
	return m.loopDone
}

// call submits an operation and waits for the loop to apply it.
func (m *Machine) call(ev opEvent) error {
	done := m.currentLoop()
	if done == nil {
		return domain.ErrMachineClosed
	}
	ev.reply = make(chan error, 1)
	if !m.send(done, ev) {
		return domain.ErrMachineClosed
	}
	select {
	case err := <-ev.reply:
		return err
	case <-done:
		return domain.ErrMachineClosed
	}
}

// enqueue hands a provider callback to the loop; it is dropped if the loop
// is not running.
func (m *Machine) enqueue(ev any) {
	done := m.currentLoop()
	if done == nil {
		m.logger.Debug("event dropped, machine not running")
		return
	}
	m.send(done, ev)
}

func (m *Machine) send(done chan struct{}, ev any) bool {
	select {
	case m.events <- ev:
		return true
	case <-done:
		return false
	}
}

func (m *Machine) apply(done chan struct{}, ev any) {
	switch e := ev.(type) {
	case opEvent:
		e.reply <- m.applyOp(e)
	case permissionEvent:
		m.applyPermission(e.status)
	case positionEvent:
		m.applyPosition(e.pos)
	case locationErrorEvent:
		le := domain.NewLookupError(domain.LookupUnknown, e.err)
		m.logger.Warn("location error", ports.Err(e.err))
		m.setView(domain.Failed(le.Error()), "location error")
	case debounceEvent:
		if pos, ok := m.pipeline.fire(e.seq); ok {
			m.dispatch(done, pos)
		}
	case lookupEvent:
		m.applyLookup(e)
	}
}

func (m *Machine) applyOp(e opEvent) error {
	switch e.kind {
	case opStart:
		return m.startSession(false)
	case opResume:
		return m.startSession(true)
	case opStop:
		m.provider.StopTracking()
		m.endSession()
		m.setView(domain.StopSharing(), "stop requested")
		return nil
	case opRestore:
		m.restore(e.feed)
		return nil
	case opRefreshPermission:
		m.applyPermission(m.provider.AuthorizationStatus())
		return nil
	case opFlush:
		return nil
	default:
		return errors.New("unknown operation " + e.kind.String())
	}
}

func (m *Machine) startSession(resume bool) error {
	current := m.view.Kind
	if resume && current != domain.ViewStopSharing {
		return domain.ErrNotStopped
	}
	if current == domain.ViewDeniedLocation || m.permission == domain.PermissionDenied {
		return domain.ErrPermissionDenied
	}

	reason := "start requested"
	if resume {
		reason = "resume requested"
	}

	if m.tracking {
		// Same session: Start is idempotent while loading or loaded.
		if current == domain.ViewLoading || current == domain.ViewLoaded {
			return nil
		}
		m.showSession(reason)
		return nil
	}

	if !resume && m.cfg.ResetOnRestart && len(m.photos) > 0 {
		m.logger.Info("clearing photos for new session", ports.Int("photos", len(m.photos)))
		m.photos = nil
		m.seen = make(map[domain.PhotoReference]struct{})
		m.publishFeed(time.Time{})
	}

	m.epoch++
	m.tracking = true
	m.pipeline.reset()
	m.provider.StartTracking()
	m.showSession(reason)
	return nil
}

// showSession displays accumulated photos, or loading when there are none.
func (m *Machine) showSession(reason string) {
	if len(m.photos) > 0 {
		m.setView(domain.Loaded(m.photos), reason)
		return
	}
	m.setView(domain.Loading(), reason)
}

// endSession invalidates in-flight lookups and pending positions.
func (m *Machine) endSession() {
	m.tracking = false
	m.epoch++
	m.pipeline.reset()
}

func (m *Machine) restore(feed domain.Feed) {
	feed = feed.Normalized()
	m.photos = slices.Clone(feed.Photos)
	m.seen = make(map[domain.PhotoReference]struct{}, len(m.photos))
	for _, p := range m.photos {
		m.seen[p] = struct{}{}
	}
	m.publishFeed(feed.UpdatedAt)
	m.logger.Info("feed restored", ports.Int("photos", len(m.photos)))
	if m.view.Kind == domain.ViewLoaded || (m.tracking && m.view.Kind == domain.ViewLoading) {
		m.showSession("feed restored")
	}
}

func (m *Machine) applyPermission(status domain.PermissionStatus) {
	m.logger.Debug("permission status", ports.String("status", status.String()))
	m.permission = status
	switch status {
	case domain.PermissionGranted:
		if m.view.Kind == domain.ViewDeniedLocation {
			m.setView(domain.Ready(), "permission granted")
		}
	case domain.PermissionUndetermined:
		m.provider.RequestAuthorization()
	case domain.PermissionDenied:
		if m.tracking {
			m.provider.StopTracking()
		}
		m.endSession()
		m.setView(domain.DeniedLocation(), "permission denied")
	}
}

func (m *Machine) applyPosition(pos domain.Position) {
	if !m.tracking {
		m.logger.Debug("position ignored, not tracking", ports.String("position", pos.String()))
		return
	}
	if !m.pipeline.offer(pos) {
		m.logger.Debug("duplicate position discarded", ports.String("position", pos.String()))
	}
}

func (m *Machine) dispatch(done chan struct{}, pos domain.Position) {
	epoch := m.epoch
	ctx := m.runCtx
	m.logger.Debug("dispatching lookup", ports.String("position", pos.String()))

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		start := m.clock.Now()
		ref, err := m.lookup.Lookup(ctx, pos)
		m.send(done, lookupEvent{
			epoch:    epoch,
			pos:      pos,
			ref:      ref,
			err:      err,
			duration: m.clock.Since(start),
		})
	}()
}

func (m *Machine) applyLookup(e lookupEvent) {
	if m.emitter != nil {
		m.emitter.OnLookup(e.pos, e.ref, e.err, e.duration)
	}
	if e.epoch != m.epoch {
		m.logger.Debug("stale lookup result discarded", ports.String("position", e.pos.String()))
		return
	}
	if e.err != nil {
		if m.runCtx.Err() != nil && errors.Is(e.err, m.runCtx.Err()) {
			return
		}
		le := domain.AsLookupError(e.err)
		m.logger.Error("lookup failed",
			ports.String("position", e.pos.String()),
			ports.String("kind", le.Kind.String()),
			ports.Err(e.err),
		)
		m.setView(domain.Failed(le.Error()), "lookup failed")
		return
	}
	if e.ref == nil || *e.ref == "" {
		m.logger.Debug("no photo near position", ports.String("position", e.pos.String()))
		return
	}
	ref := *e.ref
	if _, ok := m.seen[ref]; ok {
		m.logger.Debug("duplicate photo ignored", ports.String("photo", ref.String()))
		return
	}
	m.photos = slices.Insert(m.photos, 0, ref)
	m.seen[ref] = struct{}{}
	m.publishFeed(m.clock.Now())
	m.setView(domain.Loaded(m.photos), "photo resolved")
}

func (m *Machine) publishFeed(updatedAt time.Time) {
	m.mu.Lock()
	m.feed = domain.Feed{Photos: slices.Clone(m.photos), UpdatedAt: updatedAt}
	m.mu.Unlock()
}

func (m *Machine) setView(next domain.ViewState, reason string) {
	m.mu.Lock()
	previous := m.view
	if previous.Equal(next) {
		m.mu.Unlock()
		return
	}
	m.view = next.Clone()
	m.mu.Unlock()

	m.logger.Info("view transition",
		ports.String("from", previous.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
		ports.Int("photos", len(next.Photos)),
	)

	m.obsMu.Lock()
	observers := make([]ViewObserver, 0, len(m.observers))
	for _, id := range sortedKeys(m.observers) {
		observers = append(observers, m.observers[id])
	}
	m.obsMu.Unlock()

	for _, o := range observers {
		o.OnViewChange(previous.Clone(), next.Clone(), reason)
	}
}

func sortedKeys(m map[int]ViewObserver) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var _ ports.LocationObserver = (*Machine)(nil)
