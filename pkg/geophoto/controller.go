package geophoto

import (
	"github.com/bft-labs/geophoto/internal/app"
	"github.com/bft-labs/geophoto/internal/domain"
)

// Controller drives the fetch machine of a running Service. Operations return
// ErrMachineClosed while the service is stopped.
type Controller struct {
	machine *app.Machine
}

// Start begins a tracking session. It returns ErrPermissionDenied while
// location permission is denied.
func (c *Controller) Start() error { return c.machine.Start() }

// Stop halts tracking and shows the stopSharing state.
func (c *Controller) Stop() error { return c.machine.Stop() }

// Resume restarts tracking from stopSharing, keeping accumulated photos.
// It returns ErrNotStopped in any other state.
func (c *Controller) Resume() error { return c.machine.Resume() }

// RefreshPermission re-reads the provider's authorization status.
func (c *Controller) RefreshPermission() error { return c.machine.RefreshPermission() }

// State returns a snapshot of the current ViewState.
func (c *Controller) State() ViewState { return c.machine.State() }

// Feed returns a snapshot of the accumulated photos.
func (c *Controller) Feed() Feed { return c.machine.Feed() }

// Subscribe calls fn on every ViewState transition until the returned
// function is called. fn runs on the machine loop and must not call
// Start, Stop, Resume or RefreshPermission.
func (c *Controller) Subscribe(fn func(ViewChangeEvent)) (unsubscribe func()) {
	return c.machine.Subscribe(app.ViewObserverFunc(func(previous, current domain.ViewState, reason string) {
		fn(ViewChangeEvent{Previous: previous, Current: current, Reason: reason})
	}))
}
