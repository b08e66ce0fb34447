// Package geophoto provides an embeddable location-driven photo feed.
//
// A Service listens to a location provider, waits for positions to settle,
// looks up a nearby photo on Flickr and accumulates the distinct results
// newest first. Its presentation state is a single [ViewState] that moves
// between ready, loading, loaded, deniedLocation, stopSharing and error.
//
// # Basic Usage
//
//	provider := geophoto.NewManualProvider(geophoto.PermissionGranted)
//
//	svc, err := geophoto.New(geophoto.Config{APIKey: "your-flickr-key"},
//	    geophoto.WithLocationProvider(provider),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Stop()
//
//	_ = svc.Controller().Start()
//	provider.Push(geophoto.NewPosition(48.8584, 2.2945))
//
// # Observing State
//
// [Controller.Subscribe] and [WithEventHandler] deliver every ViewState
// transition. Handlers run on the fetch machine's goroutine and must return
// quickly.
//
// # Persistence
//
// [WithFeedRepository] restores the feed on Start and saves it in the
// background whenever a new photo arrives. Only the most recent feed is
// written when saves fall behind.
//
// # Lifecycle States
//
// A Service can be in one of five states: [StateStopped], [StateStarting],
// [StateRunning], [StateStopping], or [StateCrashed]. Use [Service.Status] to
// query the current state.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized on Start, after the
// fetch machine is running, and shut down in reverse order on Stop:
//
//	import "github.com/bft-labs/geophoto/plugins/statusapi"
//
//	svc, err := geophoto.New(cfg, statusapi.WithStatusAPI(statusapi.Config{Addr: ":8090"}))
package geophoto
