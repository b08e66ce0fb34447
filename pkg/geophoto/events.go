package geophoto

import (
	"time"

	"github.com/bft-labs/geophoto/internal/app"
	"github.com/bft-labs/geophoto/internal/domain"
)

// State is the lifecycle state of a Service.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent describes a service lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ViewChangeEvent describes a ViewState transition.
type ViewChangeEvent struct {
	Previous ViewState
	Current  ViewState
	Reason   string
}

// LookupEvent describes one completed photo lookup. Photo is nil when the
// lookup failed or found nothing.
type LookupEvent struct {
	Position Position
	Photo    *PhotoReference
	Error    error
	Duration time.Duration
}

// EventHandler receives service notifications. All methods are called
// synchronously; OnViewChange and OnLookup run on the fetch machine's loop and
// must return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnViewChange(event ViewChangeEvent)
	OnLookup(event LookupEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnViewChange(ViewChangeEvent)   {}
func (BaseEventHandler) OnLookup(LookupEvent)           {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnLookup(pos domain.Position, ref *domain.PhotoReference, err error, duration time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnLookup(LookupEvent{
		Position: pos,
		Photo:    ref,
		Error:    err,
		Duration: duration,
	})
}

func (e *eventEmitterWrapper) OnViewChange(previous, current domain.ViewState, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnViewChange(ViewChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
