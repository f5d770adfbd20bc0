// Package pubsink provides an embeddable log sink for Google Cloud Pub/Sub.
//
// A Sink renders log events, packs them into publish requests that respect
// the backend's size and count limits, publishes them concurrently, retries
// transient failures and redirects what still fails to an optional
// dead-letter topic.
//
// # Basic Usage
//
//	cfg := pubsink.Config{
//	    Project:    "my-project",
//	    Topic:      "app-logs",
//	    Attributes: "env:prod;service:billing",
//	}
//
//	sink, err := pubsink.New(cfg, pubsink.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	c := sink.Write(ctx, []pubsink.AsyncEvent{{Event: pubsink.LogEvent{Message: "hello"}}})
//	if err := c.Wait(ctx); err != nil {
//	    log.Printf("write failed: %v", err)
//	}
//
// Write never blocks on the network. Each event's Continuation runs once its
// write has finished, including any dead-letter attempt. It receives nil
// unless the whole write failed, for example because the primary topic
// could not be resolved or an event could not be rendered.
//
// # Batching
//
// By default every event becomes one message and messages are grouped so
// each request stays under MaxBytesPerRequest. With ConcatMessages, events
// are joined with newlines into messages of up to MaxMessagesPerRequest
// events each.
//
// # Read Loop and Lifecycle
//
// Attach an [EventSource] with [WithSource] and call [Sink.Start] to pull
// events in the background. [Sink.Stop] flushes, waits for in-flight writes
// and releases publisher connections. A Sink moves through [StateStopped],
// [StateStarting], [StateRunning], [StateStopping] and [StateCrashed].
//
// # Plugins
//
// Plugins are initialized on Start and receive a [Reloader], which lets
// them swap the configuration at runtime:
//
//	import "github.com/bft-labs/pubsink/plugins/configwatcher"
//
//	sink, err := pubsink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path: "/etc/pubsink/config.toml",
//	        Load: loadConfig,
//	    }),
//	)
package pubsink
