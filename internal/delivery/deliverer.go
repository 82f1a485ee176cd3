package delivery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/metrics"
)

// Transport limits.
const (
	// MaxTransportLength is the longest command the transport accepts
	// (Chromium's kMaxURLChars).
	MaxTransportLength = 2097152

	// SafetyMargin is reserved for the command wrapper on the single path.
	SafetyMargin = 1000

	// ChunkSize caps the characters appended per chunk command. Chunks are
	// cut shorter when their encoded command would exceed MaxTransportLength.
	ChunkSize = 2000000
)

// Transport is a one-way channel into the target execution context.
type Transport interface {
	Send(ctx context.Context, command string) error
}

// Deliverer executes code in the target context over a Transport.
//
// A Deliverer holds no per-call state: each chunked Deliver draws a fresh
// identifier, so back-to-back calls never share an accumulator.
type Deliverer struct {
	transport Transport
	ids       IDGenerator
	maxLength int
	margin    int
	chunkSize int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// Option configures a Deliverer.
type Option func(*Deliverer)

// WithLimits overrides the transport limits. Non-positive values keep the defaults.
func WithLimits(maxLength, margin, chunkSize int) Option {
	return func(d *Deliverer) {
		if maxLength > 0 {
			d.maxLength = maxLength
		}
		if margin > 0 {
			d.margin = margin
		}
		if chunkSize > 0 {
			d.chunkSize = chunkSize
		}
	}
}

// WithIDGenerator sets the transient identifier source.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Deliverer) {
		d.ids = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Deliverer) {
		d.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Deliverer) {
		d.metrics = m
	}
}

// New creates a Deliverer sending through t.
func New(t Transport, opts ...Option) *Deliverer {
	d := &Deliverer{
		transport: t,
		ids:       RandomIDGenerator{},
		maxLength: MaxTransportLength,
		margin:    SafetyMargin,
		chunkSize: ChunkSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver executes code in the target context.
//
// Returns the first transport error. Commands already sent are not undone.
func (d *Deliverer) Deliver(ctx context.Context, code string) error {
	encoded := Encode(code)
	if len(encoded) <= d.maxLength-d.margin {
		if err := d.transport.Send(ctx, Scheme+encoded); err != nil {
			return fmt.Errorf("deliver: %w", err)
		}
		d.metrics.ObserveDelivery(metrics.PathSingle, 1)
		return nil
	}
	return d.deliverChunked(ctx, code)
}

func (d *Deliverer) deliverChunked(ctx context.Context, code string) error {
	id := d.ids.Generate()
	global := "globalThis." + id

	prefix, suffix := "void("+global+" += `", "`);"
	budget := d.maxLength - len(Scheme) - encodedLen(prefix) - encodedLen(suffix)
	if budget < maxRuneCost {
		return fmt.Errorf("deliver: max length %d leaves no room for chunk data", d.maxLength)
	}

	chunks := splitChunks(code, d.chunkSize, budget)
	commands := make([]string, 0, len(chunks)+2)
	commands = append(commands, Command("void("+global+" = '');"))
	for _, chunk := range chunks {
		commands = append(commands, Command(prefix+TemplateEscape(chunk)+suffix))
	}
	commands = append(commands, Command("try{void Function("+global+")()}finally{delete "+global+"}"))
	for i, cmd := range commands {
		if len(cmd) > d.maxLength {
			return fmt.Errorf("deliver: command %d is %d characters, over the %d limit", i+1, len(cmd), d.maxLength)
		}
	}

	d.logger.Debug("chunked delivery",
		zap.String("id", id),
		zap.Int("code_length", len(code)),
		zap.Int("chunks", len(chunks)),
	)

	for i, cmd := range commands {
		if err := d.transport.Send(ctx, cmd); err != nil {
			d.logger.Warn("chunked delivery aborted",
				zap.String("id", id),
				zap.Int("step", i),
				zap.Int("steps", len(commands)),
				zap.Error(err),
			)
			return fmt.Errorf("deliver chunk %d/%d (%s): %w", i+1, len(commands), id, err)
		}
	}

	d.metrics.ObserveDelivery(metrics.PathChunked, len(commands))
	return nil
}
