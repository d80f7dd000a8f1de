package store

import (
	"context"
	"fmt"

	"github.com/roach88/buildml/internal/ir"
)

// InsertAction appends a new action under parent and returns its ID.
func (s *Store) InsertAction(ctx context.Context, parent ir.ActionID, argv []string, command string) (ir.ActionID, error) {
	argvJSON, err := marshalArgv(argv)
	if err != nil {
		return 0, fmt.Errorf("insert action: %w", err)
	}

	res, err := s.q().ExecContext(ctx, `
		INSERT INTO actions (parent_id, command, argv) VALUES (?, ?, ?)
	`, parent, command, argvJSON)
	if err != nil {
		return 0, fmt.Errorf("insert action under %d: %w", parent, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert action under %d: %w", parent, err)
	}
	return ir.ActionID(id), nil
}

// Action reads one action row.
func (s *Store) Action(ctx context.Context, id ir.ActionID) (ir.Action, error) {
	var a ir.Action
	var argvJSON string
	err := s.q().QueryRowContext(ctx, `
		SELECT id, parent_id, command, argv FROM actions WHERE id = ?
	`, id).Scan(&a.ID, &a.ParentID, &a.Command, &argvJSON)
	if err != nil {
		return ir.Action{}, notFound(err, "action", int(id))
	}
	if a.Argv, err = unmarshalArgv(argvJSON); err != nil {
		return ir.Action{}, fmt.Errorf("read action %d: %w", id, err)
	}
	return a, nil
}

// ActionChildren returns the children of id in creation order.
// Returns empty slice (not nil) if there are none.
func (s *Store) ActionChildren(ctx context.Context, id ir.ActionID) ([]ir.Action, error) {
	rows, err := s.q().QueryContext(ctx, `
		SELECT id, parent_id, command, argv
		FROM actions
		WHERE parent_id = ? AND id != parent_id
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query children of action %d: %w", id, err)
	}
	defer rows.Close()

	actions := []ir.Action{}
	for rows.Next() {
		var a ir.Action
		var argvJSON string
		if err := rows.Scan(&a.ID, &a.ParentID, &a.Command, &argvJSON); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if a.Argv, err = unmarshalArgv(argvJSON); err != nil {
			return nil, fmt.Errorf("scan action %d: %w", a.ID, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

// MaxActionID returns the largest action ID in use. The root always exists.
func (s *Store) MaxActionID(ctx context.Context) (ir.ActionID, error) {
	var id int64
	if err := s.q().QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM actions`).Scan(&id); err != nil {
		return 0, fmt.Errorf("max action id: %w", err)
	}
	return ir.ActionID(id), nil
}
