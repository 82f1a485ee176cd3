package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/host"
	"github.com/roach88/userscript/internal/metrics"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	RemoteURL   string
	StartURL    string
	MetricsAddr string
	Headful     bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Drive a browser and inject scripts on every navigation",
		Long: `Launch (or attach to) a Chromium browser over the DevTools protocol and
inject every matching script after each page load.

Pages send control requests by calling the binding function, named by
browser.binding in the config ("userscript" by default):

  userscript(JSON.stringify({action: "getIds"}))

Metrics are served on /metrics when --metrics-addr (or metrics.addr) is set.

Example:
  userscript serve --start-url https://example.com/
  userscript serve --remote-url ws://127.0.0.1:9222/devtools/browser/...
  userscript serve --metrics-addr 127.0.0.1:9100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.load(cmd); err != nil {
				return err
			}
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RemoteURL, "remote-url", "", "attach to a running browser (overrides config)")
	cmd.Flags().StringVar(&opts.StartURL, "start-url", "", "URL to open once ready (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "listen address for /metrics (overrides config)")
	cmd.Flags().BoolVar(&opts.Headful, "headful", false, "show the browser window")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	logger := opts.Logger
	if opts.RemoteURL != "" {
		cfg.Browser.RemoteURL = opts.RemoteURL
	}
	if opts.StartURL != "" {
		cfg.Browser.StartURL = opts.StartURL
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if opts.Headful {
		cfg.Browser.Headless = false
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	if cfg.Metrics.Addr != "" {
		srv, err := startMetricsServer(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start metrics server", err)
		}
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	browser, err := host.New(ctx, host.Options{
		RemoteURL:   cfg.Browser.RemoteURL,
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		Binding:     cfg.Browser.Binding,
	}, logger.Named("host"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start browser", err)
	}
	defer browser.Close()

	sess, err := opts.openSession(browser, m)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err := browser.Attach(sess.engine); err != nil {
		return WrapExitError(ExitCommandError, "failed to attach to browser", err)
	}

	// Stop when the browser goes away.
	go func() {
		select {
		case <-browser.Done():
			logger.Info("browser closed, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Browser.StartURL != "" {
		go func() {
			if err := browser.Navigate(cfg.Browser.StartURL); err != nil {
				logger.Warn("start page failed", zap.Error(err))
			}
		}()
	}

	logger.Info("engine starting",
		zap.String("db", cfg.DB.Path),
		zap.String("driver", cfg.DB.Driver),
		zap.String("binding", cfg.Browser.Binding),
	)
	opts.formatter(cmd).Text("Injecting userscripts. Press Ctrl-C to stop.")

	if err := sess.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	logger.Info("engine stopped gracefully")
	return nil
}

// startMetricsServer serves reg on addr/metrics until shut down. The
// returned server's Addr holds the bound address.
func startMetricsServer(addr string, reg *prometheus.Registry, logger *zap.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: ln.Addr().String(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", srv.Addr))
	return srv, nil
}
