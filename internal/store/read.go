package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/userscript/internal/script"
)

// GetAll returns every stored script in insertion order.
// Returns an empty slice (never nil) when the store is empty.
func (s *Store) GetAll(ctx context.Context) ([]script.Script, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match, exclude, code, encoded
		FROM scripts
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	scripts := []script.Script{}
	for rows.Next() {
		sc, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}

	return scripts, nil
}

// Get returns the script with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (script.Script, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, match, exclude, code, encoded
		FROM scripts
		WHERE id = ?
	`, id)

	sc, err := scanScript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return script.Script{}, fmt.Errorf("get script %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return script.Script{}, err
	}
	return sc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScript(row scanner) (script.Script, error) {
	var (
		sc          script.Script
		matchJSON   string
		excludeJSON string
		encoded     int
	)
	if err := row.Scan(&sc.ID, &matchJSON, &excludeJSON, &sc.Code, &encoded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return script.Script{}, err
		}
		return script.Script{}, fmt.Errorf("scan script: %w", err)
	}

	var err error
	if sc.Match, err = unmarshalPatterns(matchJSON); err != nil {
		return script.Script{}, fmt.Errorf("script %q match: %w", sc.ID, err)
	}
	if sc.Exclude, err = unmarshalPatterns(excludeJSON); err != nil {
		return script.Script{}, fmt.Errorf("script %q exclude: %w", sc.ID, err)
	}
	sc.Encoded = encoded != 0
	return sc, nil
}
