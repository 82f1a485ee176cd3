package cli

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roach88/userscript/internal/metrics"
)

func TestStartMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveInjection()

	srv, err := startMetricsServer("127.0.0.1:0", reg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "userscript_injections_total 1")
}

func TestStartMetricsServer_BadAddr(t *testing.T) {
	_, err := startMetricsServer("256.0.0.1:bad", prometheus.NewRegistry(), zap.NewNop())
	require.Error(t, err)
}
