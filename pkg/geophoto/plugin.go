package geophoto

import "context"

// Plugin extends a Service. Plugins are initialized in registration order
// when the service starts and shut down in reverse order when it stops.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize is called from Start after the fetch machine is running.
	// Long-running work must be started in a goroutine bound to ctx.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown releases plugin resources.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to each plugin on Initialize.
type PluginConfig struct {
	// Controller drives the fetch machine.
	Controller *Controller

	// Manual is the service's location provider when it is a ManualProvider,
	// otherwise nil.
	Manual *ManualProvider

	// Logger is the service logger.
	Logger Logger
}
