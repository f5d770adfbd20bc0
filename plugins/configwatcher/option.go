package configwatcher

import "github.com/bft-labs/pubsink/pkg/pubsink"

// WithConfigWatcher returns a pubsink Option that reloads the sink whenever
// the config file at cfg.Path changes.
//
// Usage:
//
//	s, err := pubsink.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path: path,
//	        Load: func() (pubsink.Config, error) { return loadConfig(path) },
//	    }),
//	)
func WithConfigWatcher(cfg Config) pubsink.Option {
	return pubsink.WithPlugin(New(cfg))
}
