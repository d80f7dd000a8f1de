package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/buildml/internal/ir"
)

// accessFilter is the WHERE fragment shared by every filtered access query.
// AccessUnspecified (0) matches any recorded access.
const accessFilter = `((?1 = 0 AND access != 0) OR (access & ?1) = ?1)`

// AddAccess records that action touched path. Re-recording the same pair
// ORs the new access type into the existing row, so the row keeps the
// position of the first record.
//
// Note: both IDs must exist (foreign key constraint).
func (s *Store) AddAccess(ctx context.Context, action ir.ActionID, path ir.PathID, typ ir.AccessType) error {
	_, err := s.q().ExecContext(ctx, `
		INSERT INTO accesses (action_id, path_id, access) VALUES (?, ?, ?)
		ON CONFLICT(action_id, path_id) DO UPDATE SET access = access | excluded.access
	`, action, path, typ)
	if err != nil {
		return fmt.Errorf("add access %d -> %d: %w", action, path, err)
	}
	return nil
}

// AccessedPaths returns the paths one action touched under filter, in the
// order they were first recorded. Descendant actions are not included.
func (s *Store) AccessedPaths(ctx context.Context, action ir.ActionID, filter ir.AccessType) ([]ir.PathID, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT path_id FROM accesses
		WHERE action_id = ?2 AND `+accessFilter+`
		ORDER BY rowid ASC
	`, filter, action)
	if err != nil {
		return nil, fmt.Errorf("query accesses of action %d: %w", action, err)
	}
	return scanIDs[ir.PathID](rows)
}

// Accessors returns the actions that touched path under filter, by ID.
func (s *Store) Accessors(ctx context.Context, path ir.PathID, filter ir.AccessType) ([]ir.ActionID, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT action_id FROM accesses
		WHERE path_id = ?2 AND `+accessFilter+`
		ORDER BY action_id ASC
	`, filter, path)
	if err != nil {
		return nil, fmt.Errorf("query accessors of path %d: %w", path, err)
	}
	return scanIDs[ir.ActionID](rows)
}

// ActionsAccessingAny returns the distinct actions that touched any of paths
// under filter, by ID.
func (s *Store) ActionsAccessingAny(ctx context.Context, paths []ir.PathID, filter ir.AccessType) ([]ir.ActionID, error) {
	if len(paths) == 0 {
		return []ir.ActionID{}, nil
	}
	ids, err := json.Marshal(paths)
	if err != nil {
		return nil, fmt.Errorf("encode path ids: %w", err)
	}
	rows, err := s.q().QueryContext(ctx, `
		SELECT DISTINCT action_id FROM accesses
		WHERE path_id IN (SELECT value FROM json_each(?2)) AND `+accessFilter+`
		ORDER BY action_id ASC
	`, filter, string(ids))
	if err != nil {
		return nil, fmt.Errorf("query accessors: %w", err)
	}
	return scanIDs[ir.ActionID](rows)
}

// PathsAccessedByAny returns the distinct paths that any of actions touched
// under filter, by ID.
func (s *Store) PathsAccessedByAny(ctx context.Context, actions []ir.ActionID, filter ir.AccessType) ([]ir.PathID, error) {
	if len(actions) == 0 {
		return []ir.PathID{}, nil
	}
	ids, err := json.Marshal(actions)
	if err != nil {
		return nil, fmt.Errorf("encode action ids: %w", err)
	}
	rows, err := s.q().QueryContext(ctx, `
		SELECT DISTINCT path_id FROM accesses
		WHERE action_id IN (SELECT value FROM json_each(?2)) AND `+accessFilter+`
		ORDER BY path_id ASC
	`, filter, string(ids))
	if err != nil {
		return nil, fmt.Errorf("query accessed paths: %w", err)
	}
	return scanIDs[ir.PathID](rows)
}

// PathCount pairs a path with the number of distinct actions that touched it.
type PathCount struct {
	PathID ir.PathID `json:"path_id"`
	Count  int       `json:"count"`
}

// MostAccessed returns up to n visible paths with the most distinct
// accessors, highest first; ties are broken by ID.
func (s *Store) MostAccessed(ctx context.Context, n int) ([]PathCount, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT a.path_id, COUNT(*) AS c
		FROM accesses a JOIN paths p ON p.id = a.path_id
		WHERE p.hidden = 0
		GROUP BY a.path_id
		ORDER BY c DESC, a.path_id ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query most accessed: %w", err)
	}
	defer rows.Close()

	counts := []PathCount{}
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.PathID, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan path count: %w", err)
		}
		counts = append(counts, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate path counts: %w", err)
	}
	return counts, nil
}

// WriteOnlyPaths returns visible paths that were written but never read.
func (s *Store) WriteOnlyPaths(ctx context.Context) ([]ir.PathID, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT a.path_id
		FROM accesses a JOIN paths p ON p.id = a.path_id
		WHERE p.hidden = 0
		GROUP BY a.path_id
		HAVING MAX(a.access & 1) = 0
		ORDER BY a.path_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query write-only paths: %w", err)
	}
	return scanIDs[ir.PathID](rows)
}

// NeverAccessedPaths returns visible files no action ever touched.
// Directories are excluded since traces only record file accesses.
func (s *Store) NeverAccessedPaths(ctx context.Context) ([]ir.PathID, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT p.id FROM paths p
		WHERE p.hidden = 0 AND p.type != ?
		  AND NOT EXISTS (SELECT 1 FROM accesses a WHERE a.path_id = p.id)
		ORDER BY p.id ASC
	`, ir.PathTypeDir)
	if err != nil {
		return nil, fmt.Errorf("query never-accessed paths: %w", err)
	}
	return scanIDs[ir.PathID](rows)
}

// Counts summarizes the size of the stored graph.
type Counts struct {
	Paths    int `json:"paths"`
	Actions  int `json:"actions"`
	Accesses int `json:"accesses"`
}

// Counts returns row counts for paths, actions and accesses.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.q().QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM paths),
			(SELECT COUNT(*) FROM actions),
			(SELECT COUNT(*) FROM accesses)
	`).Scan(&c.Paths, &c.Actions, &c.Accesses)
	if err != nil {
		return Counts{}, fmt.Errorf("count rows: %w", err)
	}
	return c, nil
}
