package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/metrics"
	"github.com/roach88/userscript/internal/script"
)

// ScriptStore is the durable script mapping the engine reads and mutates.
// Implemented by store.Store and store.BoltStore.
type ScriptStore interface {
	GetAll(ctx context.Context) ([]script.Script, error)
	InsertAll(ctx context.Context, scripts ...script.Script) error
	Delete(ctx context.Context, s script.Script) (int64, error)
}

// Deliverer executes code in the target context.
// Implemented by delivery.Deliverer.
type Deliverer interface {
	Deliver(ctx context.Context, code string) error
}

// Encoder turns raw script source into its injectable form.
type Encoder func(s script.Script) (string, error)

// Session holds per-page state that every navigation resets.
type Session struct {
	DevtoolsLoaded    bool
	DevtoolsFontFixed bool
}

// Engine matches stored scripts against navigations, delivers them, and
// serves control requests from the page.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Handle*(), Dispatch(), OpenDevTools(), FixDevtoolsFont(): safe from
//     any goroutine; calls are serialized with the Run loop
type Engine struct {
	store     ScriptStore
	deliverer Deliverer
	encode    Encoder
	traces    TraceGenerator
	logger    *zap.Logger
	metrics   *metrics.Metrics
	devtools  string

	queue *eventQueue

	mu      sync.Mutex // serializes event handling
	session Session
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the metrics sink. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithEncoder replaces script.Encode.
func WithEncoder(enc Encoder) Option {
	return func(e *Engine) {
		e.encode = enc
	}
}

// WithTraceGenerator sets the event trace token source. Default: UUIDv7.
func WithTraceGenerator(g TraceGenerator) Option {
	return func(e *Engine) {
		e.traces = g
	}
}

// WithDevtoolsSource sets the devtools panel source injected on first open.
func WithDevtoolsSource(src string) Option {
	return func(e *Engine) {
		e.devtools = src
	}
}

// New creates an Engine over the given store and deliverer.
func New(s ScriptStore, d Deliverer, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		deliverer: d,
		encode:    script.Encode,
		traces:    UUIDv7Generator{},
		logger:    zap.NewNop(),
		queue:     newEventQueue(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session returns a copy of the current session state.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// HandleNavigation runs every applicable script for a completed navigation
// to url and returns the IDs of the scripts delivered, in store order.
//
// URLs without an http, https or file scheme run nothing. The session
// flags are reset on every call.
func (e *Engine) HandleNavigation(ctx context.Context, url string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handleNavigation(ctx, e.logger, url)
}

func (e *Engine) handleNavigation(ctx context.Context, log *zap.Logger, url string) ([]string, error) {
	defer func() { e.session = Session{} }()

	if !SupportedScheme(url) {
		log.Debug("navigation ignored", zap.String("url", url))
		return nil, nil
	}

	scripts, err := e.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("handle navigation: %w", err)
	}

	injected := []string{}
	for _, s := range scripts {
		if !ShouldRun(s, url) {
			continue
		}
		log := log.With(zap.String("script", s.ID))

		if !s.Encoded {
			code, err := e.encode(s)
			if err != nil {
				// Left unencoded so the next matching navigation retries.
				log.Warn("encode failed, script skipped", zap.Error(err))
				e.metrics.ObserveEncodeFailure()
				continue
			}
			if err := script.Check(s.ID, code); err != nil {
				log.Debug("script may not compile in page", zap.Error(err))
			}
			s.Code = code
			s.Encoded = true
			if err := e.store.InsertAll(ctx, s); err != nil {
				log.Error("persist encoded script", zap.Error(err))
			}
		}

		if err := e.deliverer.Deliver(ctx, s.Code); err != nil {
			log.Error("deliver script", zap.Error(err))
			continue
		}
		e.metrics.ObserveInjection()
		injected = append(injected, s.ID)
	}

	log.Info("navigation handled",
		zap.String("url", url),
		zap.Int("scripts", len(scripts)),
		zap.Strings("injected", injected),
	)
	return injected, nil
}

// Enqueue submits an event for processing by the Run loop and assigns it a
// trace token if it has none.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	if ev.Trace == "" {
		ev.Trace = e.traces.Generate()
	}
	return e.queue.Enqueue(ev)
}

// Run starts the single-writer event loop.
// Blocks until the context is cancelled or Stop() is called; events queued
// before Stop are processed first.
//
// A failing event is logged and the loop continues.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				e.logger.Error("event failed",
					zap.String("trace", event.Trace),
					zap.Stringer("type", event.Type),
					zap.String("url", event.URL),
					zap.String("action", event.Action),
					zap.Error(err),
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Drained() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue, which causes Run to return once it is empty.
func (e *Engine) Stop() {
	e.queue.Close()
}

// processEvent routes an event to its handler.
func (e *Engine) processEvent(ctx context.Context, ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.With(zap.String("trace", ev.Trace))

	switch ev.Type {
	case EventNavigation:
		_, err := e.handleNavigation(ctx, log, ev.URL)
		return err

	case EventControl:
		callback, _ := e.dispatch(ctx, log, ev.Action, ev.Payload)
		if callback == "" {
			return nil
		}
		if err := e.deliverer.Deliver(ctx, callback); err != nil {
			return fmt.Errorf("deliver %s callback: %w", ev.Action, err)
		}
		return nil

	case EventDevtools:
		switch ev.Action {
		case DevtoolsOpen:
			return e.openDevTools(ctx)
		case DevtoolsFixFont:
			return e.fixDevtoolsFont(ctx)
		default:
			return fmt.Errorf("unknown devtools action %q", ev.Action)
		}

	default:
		return fmt.Errorf("unknown event type: %d", ev.Type)
	}
}
