package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/delivery"
	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/store"
	"github.com/roach88/userscript/internal/testutil"
	"github.com/roach88/userscript/internal/transport"
)

// ErrCodeDevtoolsUnavailable is recorded for a devtools step when the
// scenario has no devtools source.
const ErrCodeDevtoolsUnavailable = "DEVTOOLS_UNAVAILABLE"

// Harness is the scenario execution engine.
type Harness struct {
	store     *store.Store
	engine    *engine.Engine
	deliverer *delivery.Deliverer
	vm        *transport.VM
	logger    *zap.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger routes engine and delivery logs to l. Logs are discarded by
// default.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and VM.
// Execution flow:
// 1. Install scenario.Scripts through the installScript control action
// 2. Run each step, recording injected ids, console output and errors
// 3. Check step expectations and assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.OpenMemory(store.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	vm := transport.NewVM()
	deliveryOpts := []delivery.Option{
		delivery.WithIDGenerator(testutil.NewSequence("acc")),
		delivery.WithLogger(o.logger),
	}
	if d := scenario.Delivery; d != nil {
		deliveryOpts = append(deliveryOpts, delivery.WithLimits(d.MaxLength, d.Margin, d.ChunkSize))
	}
	deliverer := delivery.New(vm, deliveryOpts...)

	engineOpts := []engine.Option{engine.WithLogger(o.logger)}
	if scenario.DevtoolsSource != "" {
		engineOpts = append(engineOpts, engine.WithDevtoolsSource(scenario.DevtoolsSource))
	}

	h := &Harness{
		store:     st,
		engine:    engine.New(st, deliverer, engineOpts...),
		deliverer: deliverer,
		vm:        vm,
		logger:    o.logger,
	}

	ctx := context.Background()
	result := NewResult()

	for i, sc := range scenario.Scripts {
		ev, err := h.control(ctx, engine.ActionInstallScript, sc.Source())
		if err != nil {
			return nil, fmt.Errorf("install script %d: %w", i, err)
		}
		ev = result.addTrace(ev)
		if ev.Error != "" {
			return nil, fmt.Errorf("install script %d (%s): %s", i, sc.Name, ev.Error)
		}
	}

	for i, step := range scenario.Steps {
		ev, err := h.step(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		ev = result.addTrace(ev)
		if step.Expect != nil {
			for _, msg := range checkExpect(i, ev, step.Expect) {
				result.AddError(msg)
			}
		}
		h.logger.Debug("step completed",
			zap.Int("step", i),
			zap.String("kind", ev.Kind),
			zap.String("target", ev.Target),
			zap.Strings("injected", ev.Injected),
		)
	}

	stored, err := st.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read final store: %w", err)
	}
	for _, s := range stored {
		result.Stored = append(result.Stored, s.ID)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// step runs one step and returns its unnumbered trace event.
func (h *Harness) step(ctx context.Context, step Step) (TraceEvent, error) {
	switch {
	case step.Navigate != "":
		h.vm.ResetConsole()
		injected, err := h.engine.HandleNavigation(ctx, step.Navigate)
		if err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{
			Kind:     KindNavigate,
			Target:   step.Navigate,
			Injected: injected,
			Console:  h.console(),
		}, nil

	case step.Control != nil:
		return h.control(ctx, step.Control.Action, step.Control.payload())

	default:
		h.vm.ResetConsole()
		var err error
		if step.Devtools == engine.DevtoolsOpen {
			err = h.engine.OpenDevTools(ctx)
		} else {
			err = h.engine.FixDevtoolsFont(ctx)
		}
		ev := TraceEvent{Kind: KindDevtools, Target: step.Devtools}
		switch {
		case errors.Is(err, engine.ErrDevtoolsUnavailable):
			ev.Error = ErrCodeDevtoolsUnavailable
		case err != nil:
			return TraceEvent{}, err
		}
		ev.Console = h.console()
		return ev, nil
	}
}

// control dispatches a control request and delivers its callback, the way
// the engine's event loop does.
func (h *Harness) control(ctx context.Context, action, payload string) (TraceEvent, error) {
	h.vm.ResetConsole()
	ev := TraceEvent{Kind: KindControl, Target: action}

	callback, err := h.engine.Dispatch(ctx, action, payload)
	var ce *engine.ControlError
	switch {
	case errors.As(err, &ce):
		ev.Error = string(ce.Code)
	case err != nil:
		return TraceEvent{}, err
	}

	if callback != "" {
		if err := h.deliverer.Deliver(ctx, callback); err != nil {
			return TraceEvent{}, fmt.Errorf("deliver %s callback: %w", action, err)
		}
	}
	ev.Console = h.console()
	return ev, nil
}

func (h *Harness) console() []string {
	entries := h.vm.Console()
	if len(entries) == 0 {
		return nil
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// checkExpect compares a step's trace event against its expect clause.
func checkExpect(index int, ev TraceEvent, want *Expect) []string {
	var errs []string
	if want.Injected != nil && !slices.Equal(want.Injected, ev.Injected) {
		errs = append(errs, fmt.Sprintf("step %d (%s %s): injected %v, expected %v",
			index, ev.Kind, ev.Target, ev.Injected, want.Injected))
	}
	if want.Console != nil && !slices.Equal(want.Console, ev.Console) {
		errs = append(errs, fmt.Sprintf("step %d (%s %s): console %q, expected %q",
			index, ev.Kind, ev.Target, ev.Console, want.Console))
	}
	if want.Error != ev.Error {
		errs = append(errs, fmt.Sprintf("step %d (%s %s): error %q, expected %q",
			index, ev.Kind, ev.Target, ev.Error, want.Error))
	}
	return errs
}
