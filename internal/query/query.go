// Package query answers read-only questions about an ingested build: which
// files match a name, which files belong to a component, which files were
// derived from which inputs, and which actions touched what.
//
// Every result is a FileSet or ActionSet (*treeset.Set) sized to the IDs
// allocated when the query ran. Nothing here mutates the graph, and queries
// must not run while an ingestion session is open on the same store.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/buildml/internal/actions"
	"github.com/roach88/buildml/internal/components"
	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/namespace"
	"github.com/roach88/buildml/internal/store"
	"github.com/roach88/buildml/internal/treeset"
)

// Store is the set-oriented access the queries need. *store.Store satisfies it.
type Store interface {
	PathsByBaseName(ctx context.Context, pattern string) ([]ir.PathID, error)
	ActionsAccessingAny(ctx context.Context, paths []ir.PathID, filter ir.AccessType) ([]ir.ActionID, error)
	PathsAccessedByAny(ctx context.Context, actions []ir.ActionID, filter ir.AccessType) ([]ir.PathID, error)
	MostAccessed(ctx context.Context, n int) ([]store.PathCount, error)
	WriteOnlyPaths(ctx context.Context) ([]ir.PathID, error)
	NeverAccessedPaths(ctx context.Context) ([]ir.PathID, error)
}

// Classifier resolves component names to their definitions.
// *components.Set satisfies it.
type Classifier interface {
	Lookup(name string) (components.Component, bool)
}

// Engine runs queries over one store.
type Engine struct {
	store Store
	ns    *namespace.Namespace
	graph *actions.Graph
}

// New returns an Engine. ns and graph must be backed by st.
func New(st Store, ns *namespace.Namespace, graph *actions.Graph) *Engine {
	return &Engine{store: st, ns: ns, graph: graph}
}

// MatchPattern returns the visible paths whose base name matches pattern.
// '*' matches any run of characters; everything else matches literally.
func (e *Engine) MatchPattern(ctx context.Context, pattern string) (*treeset.Set, error) {
	if pattern == "" {
		return nil, badPath(pattern, "empty pattern")
	}
	if strings.ContainsAny(pattern, "/\x00") {
		return nil, badPath(pattern, "pattern matches base names and cannot contain '/'")
	}
	ids, err := e.store.PathsByBaseName(ctx, pattern)
	if err != nil {
		return nil, err
	}
	return e.fileSet(ctx, ids)
}

// FilesUnder returns p and every visible path below it.
func (e *Engine) FilesUnder(ctx context.Context, p string) (*treeset.Set, error) {
	id, err := e.resolve(ctx, p)
	if err != nil {
		return nil, err
	}
	set, err := e.ns.NewFileSet(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.addDescendants(ctx, set, id); err != nil {
		return nil, fmt.Errorf("files under %q: %w", p, err)
	}
	return set, nil
}

// addDescendants adds id and its visible descendants. Unlike
// treeset.Set.AddSubTree it does not pull in ancestors, so the result is
// exactly the subtree.
func (e *Engine) addDescendants(ctx context.Context, set *treeset.Set, id ir.PathID) error {
	stack := []ir.PathID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if set.IsMember(int(cur)) {
			continue
		}
		set.Add(int(cur))
		children, err := e.ns.Children(ctx, cur)
		if err != nil {
			return err
		}
		stack = append(stack, children...)
	}
	return nil
}

// resolve turns a user-supplied path into an ID. Relative and unknown paths are
// rejected rather than interned.
func (e *Engine) resolve(ctx context.Context, p string) (ir.PathID, error) {
	if !strings.HasPrefix(p, "/") {
		return 0, badPath(p, "path must be absolute")
	}
	id, err := e.ns.LookupPath(ctx, p)
	if errors.Is(err, namespace.ErrNotFound) {
		return 0, badPath(p, "no such path")
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FilesInComponent returns the visible paths that belong to the named
// component: every subtree it lists plus every base-name pattern match.
// Listed paths absent from this build are ignored.
func (e *Engine) FilesInComponent(ctx context.Context, c Classifier, name string) (*treeset.Set, error) {
	comp, ok := c.Lookup(name)
	if !ok {
		return nil, &QueryError{Kind: KindInvalidName, Input: name, Message: "unknown component"}
	}

	set, err := e.ns.NewFileSet(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range comp.Paths {
		id, err := e.ns.LookupPath(ctx, p)
		if errors.Is(err, namespace.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := e.addDescendants(ctx, set, id); err != nil {
			return nil, fmt.Errorf("component %s: %w", name, err)
		}
	}
	for _, pat := range comp.Patterns {
		ids, err := e.store.PathsByBaseName(ctx, pat)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set.Add(int(id))
		}
	}
	return set, nil
}

// FilesNotInComponent is the complement of FilesInComponent over every
// visible path except the root.
func (e *Engine) FilesNotInComponent(ctx context.Context, c Classifier, name string) (*treeset.Set, error) {
	in, err := e.FilesInComponent(ctx, c, name)
	if err != nil {
		return nil, err
	}
	all, err := e.AllFiles(ctx)
	if err != nil {
		return nil, err
	}
	all.ExtractSet(in)
	return all, nil
}

// AllFiles returns every visible path except the root.
func (e *Engine) AllFiles(ctx context.Context) (*treeset.Set, error) {
	set, err := e.ns.NewFileSet(ctx)
	if err != nil {
		return nil, err
	}
	if err := set.AddSubTree(int(ir.RootPath)); err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	set.Remove(int(ir.RootPath))
	return set, nil
}

// DerivedFiles returns the files written by any action that read a member
// of in. With transitive set, files derived from derived files are added
// until nothing new appears. Members of in are only reported if something
// derived them.
func (e *Engine) DerivedFiles(ctx context.Context, in *treeset.Set, transitive bool) (*treeset.Set, error) {
	return e.follow(ctx, in, ir.AccessRead, ir.AccessWrite, transitive)
}

// InputFiles is the inverse of DerivedFiles: the files read by any action
// that wrote a member of in.
func (e *Engine) InputFiles(ctx context.Context, in *treeset.Set, transitive bool) (*treeset.Set, error) {
	return e.follow(ctx, in, ir.AccessWrite, ir.AccessRead, transitive)
}

// follow finds actions touching the frontier via from, then collects the
// paths they touched via to.
func (e *Engine) follow(ctx context.Context, in *treeset.Set, from, to ir.AccessType, transitive bool) (*treeset.Set, error) {
	result, err := e.ns.NewFileSet(ctx)
	if err != nil {
		return nil, err
	}
	frontier := pathIDs(in)
	for len(frontier) > 0 {
		acts, err := e.store.ActionsAccessingAny(ctx, frontier, from)
		if err != nil {
			return nil, err
		}
		paths, err := e.store.PathsAccessedByAny(ctx, acts, to)
		if err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, p := range paths {
			if result.IsMember(int(p)) {
				continue
			}
			result.Add(int(p))
			frontier = append(frontier, p)
		}
		if !transitive {
			break
		}
	}
	return result, nil
}

// AccessorsOf returns the actions that touched any member of files under
// filter.
func (e *Engine) AccessorsOf(ctx context.Context, files *treeset.Set, filter ir.AccessType) (*treeset.Set, error) {
	ids, err := e.store.ActionsAccessingAny(ctx, pathIDs(files), filter)
	if err != nil {
		return nil, err
	}
	set, err := e.graph.NewActionSet(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set.Add(int(id))
	}
	return set, nil
}

// FilesAccessedBy returns the paths any member of acts touched under filter.
func (e *Engine) FilesAccessedBy(ctx context.Context, acts *treeset.Set, filter ir.AccessType) (*treeset.Set, error) {
	members := acts.Members()
	ids := make([]ir.ActionID, len(members))
	for i, m := range members {
		ids[i] = ir.ActionID(m)
	}
	paths, err := e.store.PathsAccessedByAny(ctx, ids, filter)
	if err != nil {
		return nil, err
	}
	return e.fileSet(ctx, paths)
}

// FilesNeverAccessed returns visible non-directory paths no action touched.
func (e *Engine) FilesNeverAccessed(ctx context.Context) (*treeset.Set, error) {
	ids, err := e.store.NeverAccessedPaths(ctx)
	if err != nil {
		return nil, err
	}
	return e.fileSet(ctx, ids)
}

// WriteOnlyFiles returns visible paths that were written and never read.
func (e *Engine) WriteOnlyFiles(ctx context.Context) (*treeset.Set, error) {
	ids, err := e.store.WriteOnlyPaths(ctx)
	if err != nil {
		return nil, err
	}
	return e.fileSet(ctx, ids)
}

// MostAccessed returns up to n paths with the most distinct accessors,
// highest first.
func (e *Engine) MostAccessed(ctx context.Context, n int) ([]store.PathCount, error) {
	if n <= 0 {
		return []store.PathCount{}, nil
	}
	return e.store.MostAccessed(ctx, n)
}

func (e *Engine) fileSet(ctx context.Context, ids []ir.PathID) (*treeset.Set, error) {
	set, err := e.ns.NewFileSet(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set.Add(int(id))
	}
	return set, nil
}

func pathIDs(s *treeset.Set) []ir.PathID {
	members := s.Members()
	ids := make([]ir.PathID, len(members))
	for i, m := range members {
		ids[i] = ir.PathID(m)
	}
	return ids
}
