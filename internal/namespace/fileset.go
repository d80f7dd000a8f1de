package namespace

import (
	"context"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/treeset"
)

// tree adapts a Namespace to treeset.Tree. The context is captured because
// the adapter interface has none.
type tree struct {
	ctx context.Context
	ns  *Namespace
}

func (t tree) Parent(id int) (int, error) {
	p, err := t.ns.Parent(t.ctx, ir.PathID(id))
	return int(p), err
}

func (t tree) Children(id int) ([]int, error) {
	children, err := t.ns.Children(t.ctx, ir.PathID(id))
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
	return t.ns.IsValid(t.ctx, ir.PathID(id))
}

// Tree returns the namespace as a treeset.Tree bound to ctx.
func (n *Namespace) Tree(ctx context.Context) treeset.Tree {
	return tree{ctx: ctx, ns: n}
}

// NewFileSet returns an empty set sized to every path ID allocated so far.
func (n *Namespace) NewFileSet(ctx context.Context) (*treeset.Set, error) {
	maxID, err := n.MaxID(ctx)
	if err != nil {
		return nil, err
	}
	return treeset.New(n.Tree(ctx), int(maxID)+1), nil
}
