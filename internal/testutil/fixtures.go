package testutil

import (
	"strings"
	"testing"

	"github.com/roach88/userscript/internal/store"
)

// UserscriptSource describes a userscript fixture.
type UserscriptSource struct {
	Name      string
	Namespace string
	Match     []string
	Exclude   []string
	Grant     []string
	Body      string
}

// String renders the fixture with a ==UserScript== metadata block.
func (u UserscriptSource) String() string {
	var b strings.Builder
	b.WriteString("// ==UserScript==\n")
	line := func(key, value string) {
		b.WriteString("// @" + key + " " + value + "\n")
	}
	if u.Name != "" {
		line("name", u.Name)
	}
	if u.Namespace != "" {
		line("namespace", u.Namespace)
	}
	for _, m := range u.Match {
		line("match", m)
	}
	for _, e := range u.Exclude {
		line("exclude", e)
	}
	for _, g := range u.Grant {
		line("grant", g)
	}
	b.WriteString("// ==/UserScript==\n")
	b.WriteString(u.Body)
	return b.String()
}

// Userscript renders a minimal userscript named name in namespace "test"
// that runs body on the given match patterns.
func Userscript(name, body string, match ...string) string {
	return UserscriptSource{
		Name:      name,
		Namespace: "test",
		Match:     match,
		Body:      body,
	}.String()
}

// OpenStore opens an in-memory SQLite store closed at test cleanup.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("store.OpenMemory() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
