package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/userscript/internal/script"
)

func TestSequence_Generate(t *testing.T) {
	seq := NewSequence("id")

	assert.Equal(t, "id1", seq.Generate())
	assert.Equal(t, "id2", seq.Generate())
	assert.Equal(t, 2, seq.Current())

	seq.Reset()
	assert.Equal(t, "id1", seq.Generate())
}

func TestSequence_ThreadSafe(t *testing.T) {
	seq := NewSequence("t")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seq.Generate()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, seq.Current())
}

func TestConstantGenerator(t *testing.T) {
	assert.Equal(t, "abc", NewConstantGenerator("abc").Generate())
	assert.Equal(t, "test-trace", NewConstantGenerator("").Generate())
}

func TestUserscript_Parses(t *testing.T) {
	src := UserscriptSource{
		Name:      "hello",
		Namespace: "ns",
		Match:     []string{"*://example.com/*"},
		Exclude:   []string{"*://example.com/login"},
		Grant:     []string{"GM_log"},
		Body:      "console.log('hi')",
	}.String()

	s, err := script.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "ns:hello", s.ID)
	assert.Equal(t, []string{"*://example.com/*"}, s.Match)
	assert.Equal(t, []string{"*://example.com/login"}, s.Exclude)
	assert.False(t, s.Encoded)
}

func TestOpenStore(t *testing.T) {
	s := OpenStore(t)

	scripts, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, scripts)
}
