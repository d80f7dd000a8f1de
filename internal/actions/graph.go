// Package actions maintains the tree of recorded processes and the files
// each one read or wrote.
//
// Every action hangs off a single root action. Children are returned in
// creation order, which for an ingested trace is the order the processes
// were started.
package actions

import (
	"context"
	"fmt"

	"github.com/alessio/shellescape"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/treeset"
)

// Store is the persistence the graph is built on. *store.Store satisfies it.
type Store interface {
	InsertAction(ctx context.Context, parent ir.ActionID, argv []string, command string) (ir.ActionID, error)
	Action(ctx context.Context, id ir.ActionID) (ir.Action, error)
	ActionChildren(ctx context.Context, id ir.ActionID) ([]ir.Action, error)
	MaxActionID(ctx context.Context) (ir.ActionID, error)
	AddAccess(ctx context.Context, action ir.ActionID, path ir.PathID, typ ir.AccessType) error
	AccessedPaths(ctx context.Context, action ir.ActionID, filter ir.AccessType) ([]ir.PathID, error)
}

// Graph is the action tree plus its access edges.
type Graph struct {
	store Store
}

// New returns a Graph over st.
func New(st Store) *Graph {
	return &Graph{store: st}
}

// CommandString joins argv into a single shell command line. Arguments are
// quoted only when they contain characters the shell would interpret.
func CommandString(argv []string) string {
	return shellescape.QuoteCommand(argv)
}

// UnknownCommand is the command recorded for a process that was never
// introduced by a NEW_PROGRAM record.
func UnknownCommand(process int32) string {
	return fmt.Sprintf("<unknown process %d>", process)
}

// Root returns the root action.
func (g *Graph) Root() ir.ActionID {
	return ir.RootAction
}

// NewAction appends a child of parent running argv.
func (g *Graph) NewAction(ctx context.Context, parent ir.ActionID, argv []string) (ir.ActionID, error) {
	id, err := g.store.InsertAction(ctx, parent, argv, CommandString(argv))
	if err != nil {
		return 0, fmt.Errorf("new action: %w", err)
	}
	return id, nil
}

// NewUnknownAction appends a synthetic root child standing in for process.
func (g *Graph) NewUnknownAction(ctx context.Context, process int32) (ir.ActionID, error) {
	id, err := g.store.InsertAction(ctx, ir.RootAction, nil, UnknownCommand(process))
	if err != nil {
		return 0, fmt.Errorf("new action for unknown process %d: %w", process, err)
	}
	return id, nil
}

// Action returns the full record for id.
func (g *Graph) Action(ctx context.Context, id ir.ActionID) (ir.Action, error) {
	return g.store.Action(ctx, id)
}

// Parent returns the parent of id. The root has none, reported as ok=false.
func (g *Graph) Parent(ctx context.Context, id ir.ActionID) (ir.ActionID, bool, error) {
	if id == ir.RootAction {
		return ir.RootAction, false, nil
	}
	a, err := g.store.Action(ctx, id)
	if err != nil {
		return 0, false, err
	}
	return a.ParentID, true, nil
}

// Children returns the children of id in creation order.
func (g *Graph) Children(ctx context.Context, id ir.ActionID) ([]ir.ActionID, error) {
	children, err := g.store.ActionChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]ir.ActionID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids, nil
}

// Command returns the shell command line recorded for id.
func (g *Graph) Command(ctx context.Context, id ir.ActionID) (string, error) {
	a, err := g.store.Action(ctx, id)
	if err != nil {
		return "", err
	}
	return a.Command, nil
}

// Argv returns the argument vector recorded for id.
func (g *Graph) Argv(ctx context.Context, id ir.ActionID) ([]string, error) {
	a, err := g.store.Action(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Argv, nil
}

// AddAccess records that action touched path. Repeated calls union the
// access types.
func (g *Graph) AddAccess(ctx context.Context, action ir.ActionID, path ir.PathID, typ ir.AccessType) error {
	if typ == ir.AccessUnspecified {
		return fmt.Errorf("add access %d -> %d: access type must be read or write", action, path)
	}
	return g.store.AddAccess(ctx, action, path, typ)
}

// FilesAccessed returns the paths action itself touched under filter, in
// first-recorded order. Descendant actions are not included.
func (g *Graph) FilesAccessed(ctx context.Context, action ir.ActionID, filter ir.AccessType) ([]ir.PathID, error) {
	return g.store.AccessedPaths(ctx, action, filter)
}

// IsValid reports whether id names an existing action.
func (g *Graph) IsValid(ctx context.Context, id ir.ActionID) bool {
	if id < 0 {
		return false
	}
	_, err := g.store.Action(ctx, id)
	return err == nil
}

// MaxID returns the largest action ID handed out so far.
func (g *Graph) MaxID(ctx context.Context) (ir.ActionID, error) {
	return g.store.MaxActionID(ctx)
}

// tree adapts a Graph to treeset.Tree. The root is reported as its own
// parent, which is where ancestor walks stop.
type tree struct {
	ctx context.Context
	g   *Graph
}

func (t tree) Parent(id int) (int, error) {
	p, ok, err := t.g.Parent(t.ctx, ir.ActionID(id))
	if err != nil {
		return 0, err
	}
	if !ok {
		return id, nil
	}
	return int(p), nil
}

func (t tree) Children(id int) ([]int, error) {
	children, err := t.g.Children(t.ctx, ir.ActionID(id))
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(children))
	for i, c := range children {
		ids[i] = int(c)
	}
	return ids, nil
}

func (t tree) Valid(id int) bool {
	return t.g.IsValid(t.ctx, ir.ActionID(id))
}

// Tree returns the graph as a treeset.Tree bound to ctx.
func (g *Graph) Tree(ctx context.Context) treeset.Tree {
	return tree{ctx: ctx, g: g}
}

// NewActionSet returns an empty set sized to every action ID allocated so far.
func (g *Graph) NewActionSet(ctx context.Context) (*treeset.Set, error) {
	maxID, err := g.MaxID(ctx)
	if err != nil {
		return nil, err
	}
	return treeset.New(g.Tree(ctx), int(maxID)+1), nil
}
