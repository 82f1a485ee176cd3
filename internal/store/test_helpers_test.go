package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/userscript/internal/script"
)

// scriptStore is the method set both backends share.
type scriptStore interface {
	GetAll(ctx context.Context) ([]script.Script, error)
	Get(ctx context.Context, id string) (script.Script, error)
	InsertAll(ctx context.Context, scripts ...script.Script) error
	Delete(ctx context.Context, sc script.Script) (int64, error)
	Close() error
}

// createTestStore creates a new file-backed SQLite store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBoltStore creates a new bbolt store for testing.
func createTestBoltStore(t *testing.T) *BoltStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bolt")
	s, err := OpenBolt(path, WithNoSync(true))
	if err != nil {
		t.Fatalf("OpenBolt() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backends returns one constructor per storage backend.
func backends() map[string]func(t *testing.T) scriptStore {
	return map[string]func(t *testing.T) scriptStore{
		"sqlite": func(t *testing.T) scriptStore { return createTestStore(t) },
		"bolt":   func(t *testing.T) scriptStore { return createTestBoltStore(t) },
	}
}

// testScript creates a script with a single match pattern.
func testScript(id, match, code string) script.Script {
	return script.Script{
		ID:      id,
		Match:   []string{match},
		Exclude: []string{},
		Code:    code,
		Encoded: true,
	}
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
