package transport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// ConsoleEntry is one captured console or alert call.
type ConsoleEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// String formats the entry as "level: message".
func (e ConsoleEntry) String() string {
	return e.Level + ": " + e.Message
}

// VM is a goja runtime standing in for the page's scripting engine.
// Commands are decoded and run in a shared global scope, so state left by
// one command (such as a delivery accumulator) is visible to the next.
type VM struct {
	mu      sync.Mutex
	rt      *goja.Runtime
	console []ConsoleEntry
}

// NewVM creates a VM with console.{log,info,warn,error,debug} and alert.
func NewVM() *VM {
	v := &VM{rt: goja.New()}

	console := v.rt.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(level, v.capture(level))
	}
	_ = v.rt.Set("console", console)
	_ = v.rt.Set("alert", v.capture("alert"))
	return v
}

func (v *VM) capture(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		// Called from inside RunString, so v.mu is already held.
		v.console = append(v.console, ConsoleEntry{Level: level, Message: strings.Join(parts, " ")})
		return goja.Undefined()
	}
}

// Send decodes command and runs it.
// Script exceptions are returned as errors; the VM stays usable.
func (v *VM) Send(ctx context.Context, command string) error {
	code, err := DecodeCommand(command)
	if err != nil {
		return err
	}
	return v.Run(ctx, code)
}

// Run executes code directly, without transport decoding.
func (v *VM) Run(ctx context.Context, code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			v.rt.Interrupt("context cancelled")
		case <-stop:
		}
	}()

	_, err := v.rt.RunString(code)
	close(stop)
	<-exited
	v.rt.ClearInterrupt()
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	return nil
}

// Console returns the captured console and alert calls in order.
func (v *VM) Console() []ConsoleEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]ConsoleEntry(nil), v.console...)
}

// ResetConsole discards captured console output.
func (v *VM) ResetConsole() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.console = nil
}

// Global returns the exported value of a global variable.
func (v *VM) Global(name string) (any, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	val := v.rt.GlobalObject().Get(name)
	if val == nil || goja.IsUndefined(val) {
		return nil, false
	}
	return val.Export(), true
}
