package pubsink

import "context"

// Plugin extends a Sink with optional behavior.
// Plugins are initialized in registration order when the sink starts and
// shut down in reverse order when it stops.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called from Start. ctx is canceled when the sink stops.
	// An error aborts Start and leaves the sink Crashed.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called from Stop. Errors are logged and do not prevent
	// the remaining plugins from shutting down.
	Shutdown(ctx context.Context) error
}

// Reloader applies a new configuration to a running sink.
// *Sink implements Reloader.
type Reloader interface {
	Reload(cfg Config) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	// Config is the configuration the sink is currently using.
	Config Config

	// Logger is the sink's logger. Never nil.
	Logger Logger

	// Reloader swaps the sink's configuration.
	Reloader Reloader
}

// BasePlugin implements Plugin with no-op lifecycle methods.
type BasePlugin struct {
	name string
}

// NewBasePlugin creates a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin name.
func (p BasePlugin) Name() string { return p.name }

// Initialize does nothing.
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(context.Context) error { return nil }
