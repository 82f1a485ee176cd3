package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/userscript/internal/delivery"
	"github.com/roach88/userscript/internal/script"
	"github.com/roach88/userscript/internal/store"
	"github.com/roach88/userscript/internal/testutil"
	"github.com/roach88/userscript/internal/transport"
)

// fixture bundles an engine with the store and transport behind it.
type fixture struct {
	engine   *Engine
	store    *store.Store
	recorder *transport.Recorder
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	s := testutil.OpenStore(t)
	rec := &transport.Recorder{}
	d := delivery.New(rec, delivery.WithIDGenerator(testutil.NewSequence("acc")))
	return &fixture{
		engine:   New(s, d, opts...),
		store:    s,
		recorder: rec,
	}
}

// decoded returns the payloads sent so far.
func (f *fixture) decoded(t *testing.T) []string {
	t.Helper()
	out, err := f.recorder.Decoded()
	require.NoError(t, err)
	return out
}

func (f *fixture) insert(t *testing.T, scripts ...script.Script) {
	t.Helper()
	require.NoError(t, f.store.InsertAll(context.Background(), scripts...))
}

func (f *fixture) get(t *testing.T, id string) script.Script {
	t.Helper()
	s, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

// identity is an Encoder that leaves code untouched.
func identity(s script.Script) (string, error) {
	return s.Code, nil
}
