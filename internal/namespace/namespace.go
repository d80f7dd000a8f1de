// Package namespace interns file paths into a tree of stable integer IDs.
//
// Paths are normalized as pure strings before lookup, so a trace captured on
// another machine resolves the same way it would have there. Component
// resolution goes through a fixed-capacity LRU keyed by (parent ID, name)
// in front of the store.
//
// A Namespace is not safe for concurrent use. In particular the LRU cache is
// unsynchronized.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/metrics"
	"github.com/roach88/buildml/internal/store"
)

// DefaultCacheSize is the number of (parent, name) entries kept in the LRU.
const DefaultCacheSize = 4096

// ErrNotFound is returned when a path string does not resolve.
var ErrNotFound = store.ErrNotFound

// ErrRoot is returned for operations that cannot apply to "/".
var ErrRoot = errors.New("operation not permitted on the root path")

// ErrCycle is returned when a rename would move a directory beneath itself.
var ErrCycle = errors.New("rename would create a cycle")

// Store is the persistence the namespace is built on. *store.Store satisfies it.
type Store interface {
	InsertPath(ctx context.Context, parent ir.PathID, name string, typ ir.PathType) (ir.PathID, error)
	LookupChild(ctx context.Context, parent ir.PathID, name string) (ir.PathID, bool, error)
	Path(ctx context.Context, id ir.PathID) (ir.Path, error)
	PathChildren(ctx context.Context, id ir.PathID) ([]ir.Path, error)
	HideSubtree(ctx context.Context, id ir.PathID) error
	MovePath(ctx context.Context, id, parent ir.PathID, name string) error
	SetPathType(ctx context.Context, id ir.PathID, typ ir.PathType, target string) error
	MaxPathID(ctx context.Context) (ir.PathID, error)
}

type cacheKey struct {
	parent ir.PathID
	name   string
}

// Namespace resolves path strings to IDs and navigates the path tree.
type Namespace struct {
	store   Store
	cache   *simplelru.LRU[cacheKey, ir.PathID]
	metrics *metrics.Metrics
}

type options struct {
	cacheSize int
	metrics   *metrics.Metrics
}

// Option configures a Namespace.
type Option func(*options)

// WithCacheSize sets the LRU capacity. Non-positive values select
// DefaultCacheSize.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New returns a Namespace over st.
func New(st Store, opts ...Option) (*Namespace, error) {
	o := options{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	cache, err := simplelru.NewLRU[cacheKey, ir.PathID](o.cacheSize, nil)
	if err != nil {
		return nil, fmt.Errorf("create path cache: %w", err)
	}
	return &Namespace{store: st, cache: cache, metrics: o.metrics}, nil
}

// Normalize turns a path string into its canonical absolute form: Unicode
// NFC, "." and ".." resolved lexically, repeated separators collapsed.
// Relative paths are taken as relative to "/". It never touches the
// filesystem.
func Normalize(p string) string {
	p = norm.NFC.String(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// components splits a normalized path into its names, root excluded.
func components(normalized string) []string {
	if normalized == "/" {
		return nil
	}
	return strings.Split(normalized[1:], "/")
}

// GetPath returns the ID of p, interning it as a file (and any missing
// ancestors as directories) if needed.
func (n *Namespace) GetPath(ctx context.Context, p string) (ir.PathID, error) {
	return n.AddPath(ctx, p, ir.PathTypeFile)
}

// AddPath is GetPath with an explicit type for the final component.
// An existing path keeps its recorded type.
func (n *Namespace) AddPath(ctx context.Context, p string, typ ir.PathType) (ir.PathID, error) {
	names := components(Normalize(p))
	id := ir.RootPath
	for i, name := range names {
		child, ok, err := n.child(ctx, id, name)
		if err != nil {
			return 0, fmt.Errorf("get path %q: %w", p, err)
		}
		if !ok {
			t := ir.PathTypeDir
			if i == len(names)-1 {
				t = typ
			}
			if child, err = n.insert(ctx, id, name, t); err != nil {
				return 0, fmt.Errorf("get path %q: %w", p, err)
			}
		}
		id = child
	}
	return id, nil
}

// LookupPath returns the ID of p without creating anything.
func (n *Namespace) LookupPath(ctx context.Context, p string) (ir.PathID, error) {
	id := ir.RootPath
	for _, name := range components(Normalize(p)) {
		child, ok, err := n.child(ctx, id, name)
		if err != nil {
			return 0, fmt.Errorf("lookup path %q: %w", p, err)
		}
		if !ok {
			return 0, fmt.Errorf("lookup path %q: %w", p, ErrNotFound)
		}
		id = child
	}
	return id, nil
}

// child resolves one component through the cache.
func (n *Namespace) child(ctx context.Context, parent ir.PathID, name string) (ir.PathID, bool, error) {
	key := cacheKey{parent: parent, name: name}
	if id, ok := n.cache.Get(key); ok {
		n.metrics.CacheHit()
		return id, true, nil
	}
	n.metrics.CacheMiss()

	id, ok, err := n.store.LookupChild(ctx, parent, name)
	if err != nil || !ok {
		return 0, false, err
	}
	n.cache.Add(key, id)
	return id, true, nil
}

func (n *Namespace) insert(ctx context.Context, parent ir.PathID, name string, typ ir.PathType) (ir.PathID, error) {
	id, err := n.store.InsertPath(ctx, parent, name, typ)
	if err != nil {
		return 0, err
	}
	n.cache.Add(cacheKey{parent: parent, name: name}, id)
	return id, nil
}

// Purge drops every cached (parent, name) entry. Call it after the store
// rolls back writes made through this namespace.
func (n *Namespace) Purge() {
	n.cache.Purge()
}

// Path returns the full record for id, including hidden paths.
func (n *Namespace) Path(ctx context.Context, id ir.PathID) (ir.Path, error) {
	return n.store.Path(ctx, id)
}

// Parent returns the parent of id. The root is its own parent.
func (n *Namespace) Parent(ctx context.Context, id ir.PathID) (ir.PathID, error) {
	p, err := n.store.Path(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.ParentID, nil
}

// Children returns the visible children of id, sorted by name.
func (n *Namespace) Children(ctx context.Context, id ir.PathID) ([]ir.PathID, error) {
	children, err := n.store.PathChildren(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]ir.PathID, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids, nil
}

// BaseName returns the last component of id. The root's base name is "".
func (n *Namespace) BaseName(ctx context.Context, id ir.PathID) (string, error) {
	p, err := n.store.Path(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// PathType returns the recorded type of id.
func (n *Namespace) PathType(ctx context.Context, id ir.PathID) (ir.PathType, error) {
	p, err := n.store.Path(ctx, id)
	if err != nil {
		return ir.PathTypeInvalid, err
	}
	return p.Type, nil
}

// FullPath reconstructs the absolute path string of id.
func (n *Namespace) FullPath(ctx context.Context, id ir.PathID) (string, error) {
	var names []string
	for id != ir.RootPath {
		p, err := n.store.Path(ctx, id)
		if err != nil {
			return "", fmt.Errorf("full path: %w", err)
		}
		names = append(names, p.Name)
		id = p.ParentID
	}
	if len(names) == 0 {
		return "/", nil
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(names[i])
	}
	return b.String(), nil
}

// IsValid reports whether id exists and has not been removed.
func (n *Namespace) IsValid(ctx context.Context, id ir.PathID) bool {
	if id < 0 {
		return false
	}
	p, err := n.store.Path(ctx, id)
	return err == nil && !p.Hidden
}

// MaxID returns the largest path ID handed out so far.
func (n *Namespace) MaxID(ctx context.Context) (ir.PathID, error) {
	return n.store.MaxPathID(ctx)
}

// Remove hides p and everything below it. Its ID stays allocated and is
// never handed out again; a later GetPath of the same string interns a
// fresh ID.
func (n *Namespace) Remove(ctx context.Context, p string) (ir.PathID, error) {
	id, err := n.LookupPath(ctx, p)
	if err != nil {
		return 0, err
	}
	if id == ir.RootPath {
		return 0, fmt.Errorf("remove %q: %w", p, ErrRoot)
	}
	if err := n.hide(ctx, id); err != nil {
		return 0, fmt.Errorf("remove %q: %w", p, err)
	}
	return id, nil
}

func (n *Namespace) hide(ctx context.Context, id ir.PathID) error {
	rec, err := n.store.Path(ctx, id)
	if err != nil {
		return err
	}
	if err := n.store.HideSubtree(ctx, id); err != nil {
		return err
	}
	n.cache.Remove(cacheKey{parent: rec.ParentID, name: rec.Name})
	return nil
}

// Rename moves oldPath to newPath keeping its ID. Missing parents of newPath
// are interned as directories, and a visible path already at newPath is
// hidden first.
func (n *Namespace) Rename(ctx context.Context, oldPath, newPath string) (ir.PathID, error) {
	id, err := n.LookupPath(ctx, oldPath)
	if err != nil {
		return 0, err
	}
	if id == ir.RootPath {
		return 0, fmt.Errorf("rename %q: %w", oldPath, ErrRoot)
	}

	dst := Normalize(newPath)
	if dst == "/" {
		return 0, fmt.Errorf("rename to %q: %w", newPath, ErrRoot)
	}
	dir, name := path.Split(dst)

	// Missing directories would be created below the deepest existing one,
	// so check that before interning anything.
	deepest, err := n.deepestExisting(ctx, dir)
	if err != nil {
		return 0, fmt.Errorf("rename %q: %w", oldPath, err)
	}
	if err := n.checkNotAncestor(ctx, id, deepest); err != nil {
		return 0, fmt.Errorf("rename %q to %q: %w", oldPath, newPath, err)
	}
	parent, err := n.AddPath(ctx, dir, ir.PathTypeDir)
	if err != nil {
		return 0, fmt.Errorf("rename %q: %w", oldPath, err)
	}

	existing, ok, err := n.child(ctx, parent, name)
	if err != nil {
		return 0, fmt.Errorf("rename %q: %w", oldPath, err)
	}
	if ok && existing == id {
		return id, nil
	}
	if ok {
		// Replacing an ancestor would hide the path being moved.
		if err := n.checkNotAncestor(ctx, existing, id); err != nil {
			return 0, fmt.Errorf("rename %q to %q: %w", oldPath, newPath, err)
		}
		if err := n.hide(ctx, existing); err != nil {
			return 0, fmt.Errorf("rename %q: replace %q: %w", oldPath, newPath, err)
		}
	}

	rec, err := n.store.Path(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("rename %q: %w", oldPath, err)
	}
	if err := n.store.MovePath(ctx, id, parent, name); err != nil {
		return 0, fmt.Errorf("rename %q: %w", oldPath, err)
	}
	n.cache.Remove(cacheKey{parent: rec.ParentID, name: rec.Name})
	n.cache.Add(cacheKey{parent: parent, name: name}, id)
	return id, nil
}

// deepestExisting resolves as much of p as is already interned.
func (n *Namespace) deepestExisting(ctx context.Context, p string) (ir.PathID, error) {
	id := ir.RootPath
	for _, name := range components(Normalize(p)) {
		child, ok, err := n.child(ctx, id, name)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		id = child
	}
	return id, nil
}

// checkNotAncestor fails if id is parent or one of its ancestors.
func (n *Namespace) checkNotAncestor(ctx context.Context, id, parent ir.PathID) error {
	for cur := parent; ; {
		if cur == id {
			return ErrCycle
		}
		if cur == ir.RootPath {
			return nil
		}
		next, err := n.Parent(ctx, cur)
		if err != nil {
			return err
		}
		cur = next
	}
}

// AddLink creates linkPath as a new symlink pointing at target. A visible
// path already at linkPath is hidden, so the link always gets a new ID.
// The target is stored verbatim; relative targets stay relative to the
// link's directory.
func (n *Namespace) AddLink(ctx context.Context, target, linkPath string) (ir.PathID, error) {
	dst := Normalize(linkPath)
	if dst == "/" {
		return 0, fmt.Errorf("link %q: %w", linkPath, ErrRoot)
	}
	dir, name := path.Split(dst)
	parent, err := n.AddPath(ctx, dir, ir.PathTypeDir)
	if err != nil {
		return 0, fmt.Errorf("link %q: %w", linkPath, err)
	}

	existing, ok, err := n.child(ctx, parent, name)
	if err != nil {
		return 0, fmt.Errorf("link %q: %w", linkPath, err)
	}
	if ok {
		if err := n.hide(ctx, existing); err != nil {
			return 0, fmt.Errorf("link %q: %w", linkPath, err)
		}
	}

	id, err := n.insert(ctx, parent, name, ir.PathTypeSymlink)
	if err != nil {
		return 0, fmt.Errorf("link %q: %w", linkPath, err)
	}
	if err := n.store.SetPathType(ctx, id, ir.PathTypeSymlink, target); err != nil {
		return 0, fmt.Errorf("link %q: %w", linkPath, err)
	}
	return id, nil
}
