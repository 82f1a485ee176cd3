package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/transport"
)

// DefaultBinding is the name of the page function that sends control requests.
const DefaultBinding = "userscript"

// Options configures the browser connection.
type Options struct {
	// RemoteURL attaches to a running browser (ws:// or http:// debugger
	// URL) instead of launching one.
	RemoteURL string

	// Headless launches the browser without a window.
	Headless bool

	// UserDataDir is the profile directory for a launched browser.
	UserDataDir string

	// Binding is the page function name for control requests.
	Binding string

	// StartURL is opened once the browser is ready. Empty opens nothing.
	StartURL string
}

// Sink receives events produced by the browser. Implemented by engine.Engine.
type Sink interface {
	Enqueue(ev engine.Event) bool
}

// Browser is a chromedp-driven tab.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	binding     string
	logger      *zap.Logger

	mu         sync.Mutex
	sink       Sink
	pendingURL string
	mainFrame  cdp.FrameID
}

// New launches (or attaches to) a browser and opens a tab.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*Browser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Binding == "" {
		opts.Binding = DefaultBinding
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOptions(opts)...)
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	logger.Info("browser ready",
		zap.Bool("remote", opts.RemoteURL != ""),
		zap.Bool("headless", opts.Headless),
		zap.String("binding", opts.Binding),
	)

	return &Browser{
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		binding:     opts.Binding,
		logger:      logger,
	}, nil
}

func allocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	out = append(out, chromedp.Flag("headless", opts.Headless))
	if opts.UserDataDir != "" {
		out = append(out, chromedp.UserDataDir(opts.UserDataDir))
	}
	return out
}

// Send evaluates a javascript: command in the page.
func (b *Browser) Send(ctx context.Context, command string) error {
	code, err := transport.DecodeCommand(command)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := chromedp.Run(b.ctx, chromedp.Evaluate(code, nil)); err != nil {
		return fmt.Errorf("evaluate command: %w", err)
	}
	return nil
}

// Attach installs the control binding and starts forwarding navigation and
// control events to sink.
func (b *Browser) Attach(sink Sink) error {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()

	if err := chromedp.Run(b.ctx, runtime.AddBinding(b.binding)); err != nil {
		return fmt.Errorf("add binding %q: %w", b.binding, err)
	}
	chromedp.ListenTarget(b.ctx, b.handleEvent)
	return nil
}

// Navigate opens url in the tab.
func (b *Browser) Navigate(url string) error {
	if err := chromedp.Run(b.ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Done is closed when the tab or browser goes away.
func (b *Browser) Done() <-chan struct{} {
	return b.ctx.Done()
}

// Close closes the tab and, if launched, the browser.
func (b *Browser) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
}

// handleEvent runs on the chromedp event goroutine and must not block.
func (b *Browser) handleEvent(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		// Injection waits for the load event of the committed document.
		if url, ok := b.NavigationURL(e); ok {
			b.mu.Lock()
			b.pendingURL = url
			b.mu.Unlock()
		}

	case *page.EventLoadEventFired:
		b.mu.Lock()
		url := b.pendingURL
		b.pendingURL = ""
		b.mu.Unlock()
		if url != "" {
			b.emit(engine.NavigationEvent(url))
		}

	case *page.EventNavigatedWithinDocument:
		if url, ok := b.NavigationURL(e); ok {
			b.emit(engine.NavigationEvent(url))
		}

	case *runtime.EventBindingCalled:
		if e.Name != b.binding {
			return
		}
		if ev, ok := b.ControlRequest(e.Payload); ok {
			b.emit(ev)
		}
	}
}

func (b *Browser) emit(ev engine.Event) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return
	}
	if !sink.Enqueue(ev) {
		b.logger.Warn("event dropped: engine stopped", zap.Stringer("type", ev.Type))
	}
}
