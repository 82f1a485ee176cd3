// Package transport provides delivery.Transport implementations that do not
// need a browser: an in-process JavaScript VM acting as the target context,
// a recorder, a line writer and a function adapter.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/roach88/userscript/internal/delivery"
)

// ErrNotJavaScript indicates a command without the javascript: scheme.
var ErrNotJavaScript = errors.New("command is not a javascript: URL")

// DecodeCommand returns the code carried by a javascript: command.
// Percent escapes are decoded; '+' is kept literally.
func DecodeCommand(command string) (string, error) {
	scheme := strings.TrimSpace(delivery.Scheme)
	if len(command) < len(scheme) || !strings.EqualFold(command[:len(scheme)], scheme) {
		return "", ErrNotJavaScript
	}
	code, err := url.PathUnescape(strings.TrimLeft(command[len(scheme):], " "))
	if err != nil {
		return "", fmt.Errorf("decode command: %w", err)
	}
	return code, nil
}

// Func adapts a function to delivery.Transport.
type Func func(ctx context.Context, command string) error

// Send calls f.
func (f Func) Send(ctx context.Context, command string) error {
	return f(ctx, command)
}

// Writer writes each command on its own line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send writes command followed by a newline.
func (t *Writer) Send(_ context.Context, command string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.w, command)
	return err
}

// Recorder keeps every command it receives.
// FailAt makes the n-th Send (1-based) return ErrInjected; zero disables it.
type Recorder struct {
	mu       sync.Mutex
	commands []string
	FailAt   int
}

// ErrInjected is returned by Recorder when FailAt triggers.
var ErrInjected = errors.New("injected transport failure")

// Send records command.
func (r *Recorder) Send(_ context.Context, command string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAt > 0 && len(r.commands)+1 == r.FailAt {
		r.FailAt = 0
		return ErrInjected
	}
	r.commands = append(r.commands, command)
	return nil
}

// Commands returns the raw commands received so far.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

// Decoded returns the commands received so far with the scheme and
// percent-encoding removed.
func (r *Recorder) Decoded() ([]string, error) {
	cmds := r.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		code, err := DecodeCommand(c)
		if err != nil {
			return nil, err
		}
		out[i] = code
	}
	return out, nil
}

// Reset discards recorded commands.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
}
