package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/userscript/internal/script"
)

// InsertAll upserts scripts by ID inside a single transaction.
// An existing script keeps its insertion position; its patterns, code and
// encoded flag are replaced. Either every script is written or none is.
func (s *Store) InsertAll(ctx context.Context, scripts ...script.Script) error {
	if len(scripts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert scripts: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, sc := range scripts {
		if err := insertScript(ctx, tx, sc); err != nil {
			return fmt.Errorf("insert scripts: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert scripts: commit: %w", err)
	}
	return nil
}

func insertScript(ctx context.Context, tx *sql.Tx, sc script.Script) error {
	if sc.ID == "" {
		return ErrEmptyID
	}

	matchJSON, err := marshalPatterns(sc.Match)
	if err != nil {
		return fmt.Errorf("script %q: %w", sc.ID, err)
	}
	excludeJSON, err := marshalPatterns(sc.Exclude)
	if err != nil {
		return fmt.Errorf("script %q: %w", sc.ID, err)
	}

	// seq is only assigned on first insert; the UPDATE branch leaves it alone.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scripts (id, seq, match, exclude, code, encoded)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM scripts), ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			match   = excluded.match,
			exclude = excluded.exclude,
			code    = excluded.code,
			encoded = excluded.encoded
	`,
		sc.ID,
		matchJSON,
		excludeJSON,
		sc.Code,
		boolToInt(sc.Encoded),
	)
	if err != nil {
		return fmt.Errorf("script %q: %w", sc.ID, err)
	}
	return nil
}

// Delete removes the script with sc.ID and returns the number of rows
// removed (0 or 1). Only the ID is consulted.
func (s *Store) Delete(ctx context.Context, sc script.Script) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scripts WHERE id = ?`, sc.ID)
	if err != nil {
		return 0, fmt.Errorf("delete script %q: %w", sc.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete script %q: rows affected: %w", sc.ID, err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
