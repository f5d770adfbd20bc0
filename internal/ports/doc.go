// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the delivery core and the outside world.
// They define what the core needs from external systems without specifying
// how those needs are fulfilled.
//
// # Port Interfaces
//
//   - [Publisher]: Resolves publish handles for a destination
//   - [Handle]: Publishes one bounded batch to a resolved destination
//   - [Renderer]: Turns a log event into its wire text
//   - [EventSource]: Supplies log events to the agent loop
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (Pub/Sub, hpcloud/tail, zerolog, etc.).
package ports
