package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/config"
	"github.com/roach88/userscript/internal/delivery"
	"github.com/roach88/userscript/internal/engine"
	"github.com/roach88/userscript/internal/metrics"
	"github.com/roach88/userscript/internal/store"
)

// scriptStore is a closable engine.ScriptStore.
type scriptStore interface {
	engine.ScriptStore
	Close() error
}

// openStore opens the store selected by cfg.Driver.
func openStore(cfg config.DBConfig, logger *zap.Logger) (scriptStore, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return store.Open(cfg.Path, store.WithLogger(logger.Named("store")))
	case "bolt":
		return store.OpenBolt(cfg.Path, store.WithBoltLogger(logger.Named("store")))
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// newDeliverer builds a deliverer over t with the configured limits.
func newDeliverer(cfg config.DeliveryConfig, t delivery.Transport, logger *zap.Logger, m *metrics.Metrics) *delivery.Deliverer {
	return delivery.New(t,
		delivery.WithLimits(cfg.MaxLength, cfg.SafetyMargin, cfg.ChunkSize),
		delivery.WithLogger(logger.Named("delivery")),
		delivery.WithMetrics(m),
	)
}

// readDevtools loads the devtools panel source. An empty path yields an
// empty source, which leaves devtools unavailable.
func readDevtools(cfg config.DevtoolsConfig) (string, error) {
	if cfg.SourcePath == "" {
		return "", nil
	}
	data, err := os.ReadFile(cfg.SourcePath)
	if err != nil {
		return "", fmt.Errorf("read devtools source: %w", err)
	}
	return string(data), nil
}

// session is an open store plus an engine delivering through t.
type session struct {
	store  scriptStore
	engine *engine.Engine
}

// openSession opens the configured store and builds an engine that
// delivers through t. m may be nil.
func (o *RootOptions) openSession(t delivery.Transport, m *metrics.Metrics) (*session, error) {
	st, err := openStore(o.Config.DB, o.Logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	src, err := readDevtools(o.Config.Devtools)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load devtools", err)
	}

	eng := engine.New(st, newDeliverer(o.Config.Delivery, t, o.Logger, m),
		engine.WithLogger(o.Logger.Named("engine")),
		engine.WithMetrics(m),
		engine.WithDevtoolsSource(src),
	)
	return &session{store: st, engine: eng}, nil
}

func (s *session) Close() {
	s.store.Close()
}

// commandContext returns the command's context, or Background when the
// command was not started through Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
