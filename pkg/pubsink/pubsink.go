package pubsink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/pubsink/internal/adapters/gcp"
	"github.com/bft-labs/pubsink/internal/adapters/render"
	"github.com/bft-labs/pubsink/internal/app"
	"github.com/bft-labs/pubsink/pkg/log"
)

// Sink delivers log events to a Pub/Sub topic.
// Use New to create one. Write may be called at any time before Stop;
// Start runs plugins and, when a source is attached, the read loop.
type Sink struct {
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitterWrapper
	publisher Publisher
	logger    Logger
	plugins   []Plugin

	target atomic.Pointer[app.Target]

	mu       sync.Mutex
	config   Config
	registry *app.HandleRegistry
	agent    *app.Agent
	stopped  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Sink with the given configuration.
// The sink is created in StateStopped and already accepts writes.
// Returns an error if the configuration or layout is invalid.
func New(cfg Config, opts ...Option) (*Sink, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	publisher := o.publisher
	if publisher == nil {
		publisher = gcp.NewPublisher(cfg.publisherConfig(), logger, o.clientOptions...)
	}

	s := &Sink{
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		emitter:   emitter,
		publisher: publisher,
		logger:    logger,
		plugins:   o.plugins,
		config:    cfg,
	}
	if err := s.build(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// build creates a fresh registry, target and read loop. Callers hold s.mu
// or own s exclusively.
func (s *Sink) build(cfg Config) error {
	registry := app.NewHandleRegistry(s.publisher, s.logger)
	target, err := s.newTarget(cfg, registry)
	if err != nil {
		return err
	}

	s.registry = registry
	s.target.Store(target)
	s.agent = nil
	if s.opts.source != nil {
		s.agent = app.NewAgent(cfg.agentConfig(), s.opts.source, target, s.logger)
	}
	s.stopped = false
	return nil
}

func (s *Sink) newTarget(cfg Config, registry *app.HandleRegistry) (*app.Target, error) {
	renderer := s.opts.renderer
	if renderer == nil {
		r, err := render.New(cfg.Layout)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		renderer = r
	}
	return app.NewTarget(cfg.targetConfig(), renderer, registry, s.logger, s.emitter)
}

// Start initializes plugins and starts the read loop in the background.
// Returns ErrAlreadyRunning if the sink is not stopped.
// ctx bounds the lifetime of the read loop and the plugins.
func (s *Sink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	if s.stopped {
		if err := s.build(s.config); err != nil {
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "rebuild failed")
			return err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		Config:   s.config,
		Logger:   s.logger,
		Reloader: s,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			_ = s.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	done := make(chan struct{})
	s.done = done
	agent := s.agent

	s.lifecycle.Go(func() {
		defer close(done)

		if err := s.lifecycle.TransitionTo(app.StateRunning, "sink started"); err != nil {
			s.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		if agent == nil {
			<-runCtx.Done()
			return
		}

		err := agent.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("read loop failed", log.Err(err))
			_ = s.lifecycle.TransitionTo(app.StateCrashed, err.Error())
			return
		}
		if err == nil {
			s.logger.Info("read loop finished", log.Int64("events", agent.Written()))
		}
	})

	return nil
}

// Stop cancels the read loop, waits for in-flight writes, shuts plugins
// down in reverse order and releases every publisher handle.
// Waits up to app.ShutdownTimeout before giving up.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced.
func (s *Sink) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	target := s.target.Load()
	registry := s.registry
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		if cerr := target.Close(ctx); cerr != nil {
			err = ErrShutdownTimeout
		}
		cancel()
	}

	shutdownCtx := context.Background()
	for i := len(s.plugins) - 1; i >= 0; i-- {
		p := s.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(shutdownErr))
		} else {
			s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}

	if cerr := registry.Close(); cerr != nil {
		s.logger.Warn("closing publisher handles", log.Err(cerr))
	}

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Write starts delivering events and returns immediately.
// Each event's continuation runs once delivery has finished; the returned
// Completion resolves after that. A write racing a Reload lands on the new
// configuration. After Stop, writes fail with ErrTargetClosed.
//
// In per-record mode a publish request holds at most MaxMessagesPerRequest
// messages and MaxBytesPerRequest bytes, so large writes are split into
// several requests.
func (s *Sink) Write(ctx context.Context, events []AsyncEvent) *Completion {
	return app.WriteLatest(ctx, s.target.Load, events)
}

// Reload swaps in a new configuration: route, attributes, layout, batching
// limits and retry settings. Writes already issued finish with the previous
// settings. Credentials and Timeout are fixed when the sink is created and
// read loop settings apply from the next Start.
func (s *Sink) Reload(cfg Config) error {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.publisherConfig() != s.config.publisherConfig() {
		s.logger.Warn("credentials and timeout changes need a restart",
			log.Duration("timeout", s.config.Timeout))
		cfg.CredentialsDir = s.config.CredentialsDir
		cfg.CredentialsFile = s.config.CredentialsFile
		cfg.Timeout = s.config.Timeout
	}

	// A stopping or stopped sink rebuilds from s.config on the next Start.
	if s.stopped || s.lifecycle.State() == app.StateStopping {
		s.config = cfg
		return nil
	}

	target, err := s.newTarget(cfg, s.registry)
	if err != nil {
		return err
	}

	old := s.target.Swap(target)
	if s.agent != nil {
		s.agent.SetTarget(target)
	}
	s.config = cfg

	s.lifecycle.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		if err := old.Close(ctx); err != nil {
			s.logger.Warn("previous target did not drain", log.Err(err))
		}
	})

	s.logger.Info("configuration reloaded",
		log.String("topic", target.Route().Primary.String()),
		log.String("attributes", cfg.Attributes),
		log.Bool("concat", cfg.ConcatMessages),
	)
	return nil
}

// Config returns the configuration currently in use.
func (s *Sink) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Sink) Status() State {
	return convertState(s.lifecycle.State())
}

// Done returns a channel closed when the read loop of the current run
// exits, either because the source is drained or because the sink stops.
// Returns nil before the first Start.
func (s *Sink) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
