package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/buildml/internal/ir"
)

// InsertPath interns a new child of parent and returns its ID.
// The caller is responsible for checking that no visible sibling already
// has the same name (see LookupChild).
func (s *Store) InsertPath(ctx context.Context, parent ir.PathID, name string, typ ir.PathType) (ir.PathID, error) {
	res, err := s.q().ExecContext(ctx, `
		INSERT INTO paths (parent_id, name, type) VALUES (?, ?, ?)
	`, parent, name, typ)
	if err != nil {
		return 0, fmt.Errorf("insert path %q under %d: %w", name, parent, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert path %q under %d: %w", name, parent, err)
	}
	return ir.PathID(id), nil
}

// LookupChild returns the visible child of parent named name.
// Hidden (removed) paths are skipped; if a name was removed and re-created
// the newest ID wins.
func (s *Store) LookupChild(ctx context.Context, parent ir.PathID, name string) (ir.PathID, bool, error) {
	var id int64
	err := s.q().QueryRowContext(ctx, `
		SELECT id FROM paths
		WHERE parent_id = ? AND name = ? AND hidden = 0 AND id != parent_id
		ORDER BY id DESC
		LIMIT 1
	`, parent, name).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("lookup %q under %d: %w", name, parent, err)
	}
	return ir.PathID(id), true, nil
}

// Path reads one path row, hidden or not.
func (s *Store) Path(ctx context.Context, id ir.PathID) (ir.Path, error) {
	var p ir.Path
	var hidden int
	err := s.q().QueryRowContext(ctx, `
		SELECT id, parent_id, name, type, hidden, target
		FROM paths WHERE id = ?
	`, id).Scan(&p.ID, &p.ParentID, &p.Name, &p.Type, &hidden, &p.Target)
	if err != nil {
		return ir.Path{}, notFound(err, "path", int(id))
	}
	p.Hidden = hidden != 0
	return p, nil
}

// PathChildren returns the visible children of id ordered by name, then ID.
// Returns empty slice (not nil) if there are none.
func (s *Store) PathChildren(ctx context.Context, id ir.PathID) ([]ir.Path, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT id, parent_id, name, type, hidden, target
		FROM paths
		WHERE parent_id = ? AND hidden = 0 AND id != parent_id
		ORDER BY name ASC, id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query children of path %d: %w", id, err)
	}
	return scanPaths(rows)
}

// HideSubtree marks id and every path below it removed. IDs are never
// reused, so a removed directory's children stay hidden even if the
// directory is later re-created under a new ID.
func (s *Store) HideSubtree(ctx context.Context, id ir.PathID) error {
	return s.updatePath(ctx, id, "hide", `
		WITH RECURSIVE sub(id) AS (
			SELECT id FROM paths WHERE id = ?1
			UNION
			SELECT p.id FROM paths p JOIN sub ON p.parent_id = sub.id
			WHERE p.id != p.parent_id
		)
		UPDATE paths SET hidden = 1 WHERE id IN (SELECT id FROM sub)
	`, id)
}

// MovePath re-points a path at a new parent and name, keeping its ID.
func (s *Store) MovePath(ctx context.Context, id, parent ir.PathID, name string) error {
	return s.updatePath(ctx, id, "move", `UPDATE paths SET parent_id = ?, name = ? WHERE id = ?`, parent, name, id)
}

// SetPathType changes a path's type and symlink target.
func (s *Store) SetPathType(ctx context.Context, id ir.PathID, typ ir.PathType, target string) error {
	return s.updatePath(ctx, id, "retype", `UPDATE paths SET type = ?, target = ? WHERE id = ?`, typ, target, id)
}

func (s *Store) updatePath(ctx context.Context, id ir.PathID, op, query string, args ...any) error {
	res, err := s.q().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s path %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s path %d: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s path %d: %w", op, id, ErrNotFound)
	}
	return nil
}

// MaxPathID returns the largest path ID in use. The root always exists.
func (s *Store) MaxPathID(ctx context.Context) (ir.PathID, error) {
	var id int64
	if err := s.q().QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM paths`).Scan(&id); err != nil {
		return 0, fmt.Errorf("max path id: %w", err)
	}
	return ir.PathID(id), nil
}

// PathsByBaseName returns the IDs of visible non-root paths whose base name
// matches pattern, where '*' matches any run of characters. Matching is
// case-sensitive. Results are ordered by ID.
func (s *Store) PathsByBaseName(ctx context.Context, pattern string) ([]ir.PathID, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT id FROM paths
		WHERE hidden = 0 AND id != parent_id AND name GLOB ?
		ORDER BY id ASC
	`, globPattern(pattern))
	if err != nil {
		return nil, fmt.Errorf("match paths %q: %w", pattern, err)
	}
	return scanIDs[ir.PathID](rows)
}

// VisiblePaths returns the IDs of every visible path of the given type,
// ordered by ID. PathTypeInvalid selects all types.
func (s *Store) VisiblePaths(ctx context.Context, typ ir.PathType) ([]ir.PathID, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT id FROM paths
		WHERE hidden = 0 AND (? = 0 OR type = ?)
		ORDER BY id ASC
	`, typ, typ)
	if err != nil {
		return nil, fmt.Errorf("list paths: %w", err)
	}
	return scanIDs[ir.PathID](rows)
}

// globPattern turns a '*'-only wildcard into a GLOB pattern by escaping
// GLOB's other metacharacters.
func globPattern(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '?':
			b.WriteString("[?]")
		case '[':
			b.WriteString("[[]")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanPaths(rows rowScanner) ([]ir.Path, error) {
	defer rows.Close()
	paths := []ir.Path{}
	for rows.Next() {
		var p ir.Path
		var hidden int
		if err := rows.Scan(&p.ID, &p.ParentID, &p.Name, &p.Type, &hidden, &p.Target); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		p.Hidden = hidden != 0
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate paths: %w", err)
	}
	return paths, nil
}

func scanIDs[T ~int](rows rowScanner) ([]T, error) {
	defer rows.Close()
	ids := []T{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, T(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return ids, nil
}
