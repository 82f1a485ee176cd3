package delivery

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/userscript/internal/metrics"
)

// sink records commands and optionally fails on the n-th send.
type sink struct {
	commands []string
	failAt   int
}

var errSinkClosed = errors.New("sink closed")

func (s *sink) Send(_ context.Context, command string) error {
	if s.failAt > 0 && len(s.commands)+1 == s.failAt {
		return errSinkClosed
	}
	s.commands = append(s.commands, command)
	return nil
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "1%2B1%20a", Encode("1+1 a"))
	assert.Equal(t, "%60x%60", Encode("`x`"))
	assert.NotContains(t, Encode("a b+c d"), "+")
}

func TestCommand(t *testing.T) {
	assert.Equal(t, "javascript: alert%28%27x%27%29", Command("alert('x')"))
}

func TestTemplateEscape(t *testing.T) {
	assert.Equal(t, "a\\`b\\\\c\\${d}", TemplateEscape("a`b\\c${d}"))
	assert.Equal(t, "$ {x} plain", TemplateEscape("$ {x} plain"))
}

func TestCommandBuilders(t *testing.T) {
	assert.Equal(t, "console.log(`a deleted!`)", ConsoleLog("a deleted!"))
	assert.Equal(t, `console.error("boom \"x\"")`, ConsoleError(`boom "x"`))
	assert.Equal(t, `alert('Invalid UserScript')`, Alert("Invalid UserScript"))
	assert.Equal(t, `alert('it\'s')`, Alert("it's"))
}

func TestSplitChunks(t *testing.T) {
	const unlimited = 1 << 20
	assert.Equal(t, []string{"hé", "ll", "o"}, splitChunks("héllo", 2, unlimited))
	assert.Equal(t, []string{"abc"}, splitChunks("abc", 3, unlimited))
	assert.Equal(t, []string{"abc"}, splitChunks("abc", 10, unlimited))
	assert.Equal(t, []string{"a", "b", "c"}, splitChunks("abc", 1, unlimited))
	assert.Equal(t, []string{""}, splitChunks("", 5, unlimited))

	// Each space encodes to three characters.
	assert.Equal(t, []string{"ab ", "cd"}, splitChunks("ab cd", 10, 5))
	// Escaped template characters cost two encoded bytes each.
	assert.Equal(t, []string{"`", "\\", "${"}, splitChunks("`\\${", 10, 9))
	// A multi-byte rune is never split.
	assert.Equal(t, []string{"é", "é"}, splitChunks("éé", 10, 6))
}

func TestEncodedLen(t *testing.T) {
	for _, s := range []string{"", "abc-_.~", "a b", "1+1", "é`${}\\", "💡(x)"} {
		assert.Equal(t, len(Encode(s)), encodedLen(s), s)
	}
}

func TestDeliver_SingleCommand(t *testing.T) {
	s := &sink{}
	d := New(s)

	require.NoError(t, d.Deliver(context.Background(), "1+1"))
	assert.Equal(t, []string{"javascript: 1%2B1"}, s.commands)
}

func TestDeliver_Boundary(t *testing.T) {
	const maxLength, margin, chunk = 100, 10, 30

	t.Run("at limit", func(t *testing.T) {
		s := &sink{}
		d := New(s, WithLimits(maxLength, margin, chunk), WithIDGenerator(NewFixedGenerator()))

		require.NoError(t, d.Deliver(context.Background(), strings.Repeat("a", maxLength-margin)))
		assert.Len(t, s.commands, 1)
	})

	t.Run("one over", func(t *testing.T) {
		s := &sink{}
		d := New(s, WithLimits(maxLength, margin, chunk), WithIDGenerator(NewFixedGenerator("acc")))

		require.NoError(t, d.Deliver(context.Background(), strings.Repeat("a", maxLength-margin+1)))
		// init + ceil(91/30) appends + execute
		require.Len(t, s.commands, 6)
		assert.Equal(t, Command("void(globalThis.acc = '');"), s.commands[0])
		assert.Equal(t, Command("try{void Function(globalThis.acc)()}finally{delete globalThis.acc}"), s.commands[5])
	})
}

func TestDeliver_EncodedLengthDecides(t *testing.T) {
	s := &sink{}
	d := New(s, WithLimits(100, 10, 50), WithIDGenerator(NewFixedGenerator("acc")))

	// 40 spaces encode to 120 characters, so the single path is skipped, and
	// a 50-space slice would encode to 150, so slices shrink to fit.
	code := strings.Repeat(" ", 40)
	require.NoError(t, d.Deliver(context.Background(), code))
	require.Len(t, s.commands, 5)
	for _, cmd := range s.commands {
		assert.LessOrEqual(t, len(cmd), 100, cmd)
	}
	assert.Equal(t, code, reassemble(t, s.commands[1:4]))
}

func TestDeliver_CommandsFitMaxLength(t *testing.T) {
	const maxLength = 300
	code := strings.Repeat("if (a && b) { f(`x`, '${y}', \"\\\\\"); } // é💡\n", 40)

	s := &sink{}
	d := New(s, WithLimits(maxLength, 50, 250), WithIDGenerator(NewFixedGenerator("acc")))
	require.NoError(t, d.Deliver(context.Background(), code))

	require.Greater(t, len(s.commands), 3)
	for _, cmd := range s.commands {
		assert.LessOrEqual(t, len(cmd), maxLength, cmd)
	}
	assert.Equal(t, code, reassemble(t, s.commands[1:len(s.commands)-1]))
}

func TestDeliver_MaxLengthTooSmall(t *testing.T) {
	s := &sink{}
	d := New(s, WithLimits(40, 5, 10), WithIDGenerator(NewFixedGenerator("acc")))

	err := d.Deliver(context.Background(), strings.Repeat("x", 60))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leaves no room")
	assert.Empty(t, s.commands)
}

// reassemble decodes append commands and unescapes their template literals.
func reassemble(t *testing.T, commands []string) string {
	t.Helper()
	var b strings.Builder
	for _, cmd := range commands {
		payload, err := url.PathUnescape(strings.TrimPrefix(cmd, Scheme))
		require.NoError(t, err)
		open := strings.Index(payload, "`")
		closing := strings.LastIndex(payload, "`")
		require.Less(t, open, closing, payload)
		body := payload[open+1 : closing]
		body = strings.ReplaceAll(body, "\\${", "${")
		body = strings.ReplaceAll(body, "\\`", "`")
		body = strings.ReplaceAll(body, "\\\\", "\\")
		b.WriteString(body)
	}
	return b.String()
}

func TestDeliver_FreshIDPerCall(t *testing.T) {
	s := &sink{}
	d := New(s, WithLimits(120, 100, 10), WithIDGenerator(NewFixedGenerator("first", "second")))
	code := strings.Repeat("x", 25)

	require.NoError(t, d.Deliver(context.Background(), code))
	require.NoError(t, d.Deliver(context.Background(), code))

	require.Len(t, s.commands, 10)
	assert.Contains(t, s.commands[0], "globalThis.first")
	assert.Contains(t, s.commands[5], "globalThis.second")
}

func TestDeliver_TransportFailureAborts(t *testing.T) {
	s := &sink{failAt: 3}
	d := New(s, WithLimits(120, 100, 10), WithIDGenerator(NewFixedGenerator("acc")))

	err := d.Deliver(context.Background(), strings.Repeat("x", 25))
	require.Error(t, err)
	assert.ErrorIs(t, err, errSinkClosed)
	assert.Len(t, s.commands, 2)
}

func TestDeliver_SingleFailure(t *testing.T) {
	s := &sink{failAt: 1}
	d := New(s)

	err := d.Deliver(context.Background(), "x")
	assert.ErrorIs(t, err, errSinkClosed)
}

func TestDeliver_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	d := New(&sink{}, WithLimits(120, 100, 10), WithIDGenerator(NewFixedGenerator("acc")), WithMetrics(m))

	require.NoError(t, d.Deliver(context.Background(), "x"))
	require.NoError(t, d.Deliver(context.Background(), strings.Repeat("x", 25)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.PathSingle)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.PathChunked)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.DeliveryCommands))
}

func TestRandomIDGenerator(t *testing.T) {
	id := RandomIDGenerator{}.Generate()
	assert.Len(t, id, DefaultIDLength)
	for _, r := range id {
		assert.True(t, strings.ContainsRune(letters, r), "unexpected rune %q", r)
	}
	assert.Len(t, RandomIDGenerator{Length: 4}.Generate(), 4)
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("a")
	assert.Equal(t, "a", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
