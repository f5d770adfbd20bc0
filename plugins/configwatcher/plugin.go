// Package configwatcher reloads a pubsink Sink when its config file changes.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/pubsink/pkg/log"
	"github.com/bft-labs/pubsink/pkg/pubsink"
)

// DefaultDebounceDelay is how long the watcher waits after the last change.
const DefaultDebounceDelay = 100 * time.Millisecond

// LoadFunc builds the configuration to apply after a change.
type LoadFunc func() (pubsink.Config, error)

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the config file to watch.
	Path string

	// Load rebuilds the configuration once Path has changed.
	Load LoadFunc

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// Plugin watches a config file and reloads the sink when it changes.
// The directory is watched rather than the file so that editors which
// replace the file by rename are still noticed.
type Plugin struct {
	mu sync.Mutex

	path          string
	load          LoadFunc
	debounceDelay time.Duration

	logger   log.Logger
	reloader pubsink.Reloader
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	path := cfg.Path
	if path != "" {
		path = filepath.Clean(path)
	}
	return &Plugin{
		path:          path,
		load:          cfg.Load,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file.
func (p *Plugin) Initialize(ctx context.Context, cfg pubsink.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.reloader = cfg.Reloader
	p.mu.Unlock()

	if p.path == "" || p.load == nil || p.reloader == nil {
		p.logger.Warn("config watcher disabled: no config file or loader")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload applies the file's current contents. A file that fails to load
// or validate leaves the running configuration untouched.
func (p *Plugin) reload() {
	cfg, err := p.load()
	if err != nil {
		p.logger.Error("config reload failed", log.String("path", p.path), log.Err(err))
		return
	}
	if err := p.reloader.Reload(cfg); err != nil {
		p.logger.Error("config reload rejected", log.String("path", p.path), log.Err(err))
		return
	}
	p.logger.Info("config file applied", log.String("path", p.path))
}

// Ensure Plugin implements pubsink.Plugin.
var _ pubsink.Plugin = (*Plugin)(nil)
