package query

import (
	"bytes"
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildml/internal/actions"
	"github.com/roach88/buildml/internal/components"
	"github.com/roach88/buildml/internal/interp"
	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/namespace"
	tu "github.com/roach88/buildml/internal/testutil"
	"github.com/roach88/buildml/internal/tracefile"
	"github.com/roach88/buildml/internal/treeset"
)

// buildTrace is a small compile-and-link build:
//
//	make
//	├── cc -c main.c   reads main.c util.h, writes main.o
//	├── cc -c util.c   reads util.c util.h, writes util.o
//	└── ld -o prog     reads main.o util.o libc.so.6, writes prog build.log
var buildTrace = []tracefile.Record{
	tracefile.Register(0, "/work/README"),
	tracefile.NewProgram(1, 0, []string{"make"}, nil),
	tracefile.NewProgram(2, 1, []string{"cc", "-c", "main.c"}, nil),
	tracefile.Read(2, "/work/src/main.c"),
	tracefile.Read(2, "/work/include/util.h"),
	tracefile.Write(2, "/work/obj/main.o"),
	tracefile.NewProgram(3, 1, []string{"cc", "-c", "util.c"}, nil),
	tracefile.Read(3, "/work/src/util.c"),
	tracefile.Read(3, "/work/include/util.h"),
	tracefile.Write(3, "/work/obj/util.o"),
	tracefile.NewProgram(4, 1, []string{"ld", "-o", "prog"}, nil),
	tracefile.Read(4, "/work/obj/main.o"),
	tracefile.Read(4, "/work/obj/util.o"),
	tracefile.Read(4, "/usr/lib/libc.so.6"),
	tracefile.Write(4, "/work/bin/prog"),
	tracefile.Write(4, "/work/build.log"),
}

type fixture struct {
	ns     *namespace.Namespace
	graph  *actions.Graph
	engine *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureFrom(t, buildTrace...)
}

func newFixtureFrom(t *testing.T, recs ...tracefile.Record) *fixture {
	t.Helper()
	ctx := context.Background()
	st := tu.OpenStore(t)
	ns, err := namespace.New(st)
	require.NoError(t, err)
	g := actions.New(st)

	in := interp.New(st, ns, g)
	_, err = in.Ingest(ctx, "build", bytes.NewReader(tu.EncodeTrace(t, recs...)))
	require.NoError(t, err)

	return &fixture{ns: ns, graph: g, engine: New(st, ns, g)}
}

// paths renders a FileSet as sorted full paths.
func (f *fixture) paths(t *testing.T, s *treeset.Set) []string {
	t.Helper()
	out := []string{}
	for id := range s.All() {
		p, err := f.ns.FullPath(context.Background(), ir.PathID(id))
		require.NoError(t, err)
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// commands renders an ActionSet as sorted command strings.
func (f *fixture) commands(t *testing.T, s *treeset.Set) []string {
	t.Helper()
	out := []string{}
	for id := range s.All() {
		c, err := f.graph.Command(context.Background(), ir.ActionID(id))
		require.NoError(t, err)
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (f *fixture) set(t *testing.T, paths ...string) *treeset.Set {
	t.Helper()
	ctx := context.Background()
	s, err := f.ns.NewFileSet(ctx)
	require.NoError(t, err)
	for _, p := range paths {
		id, err := f.ns.LookupPath(ctx, p)
		require.NoError(t, err, p)
		s.Add(int(id))
	}
	return s
}

func TestMatchPattern(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.c", []string{"/work/src/main.c", "/work/src/util.c"}},
		{"*.o", []string{"/work/obj/main.o", "/work/obj/util.o"}},
		{"util*", []string{"/work/include/util.h", "/work/obj/util.o", "/work/src/util.c"}},
		{"libc.so*", []string{"/usr/lib/libc.so.6"}},
		{"prog", []string{"/work/bin/prog"}},
		{"*.rs", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := f.engine.MatchPattern(ctx, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.paths(t, got))
		})
	}
}

func TestQueries_IgnoreRemovedDirectoryContents(t *testing.T) {
	ctx := context.Background()
	f := newFixtureFrom(t,
		tracefile.Register(0, "/d/x.c"),
		tracefile.Remove(0, "/d"),
		tracefile.Register(0, "/d/x.c"),
	)
	live, err := f.ns.LookupPath(ctx, "/d/x.c")
	require.NoError(t, err)

	matched, err := f.engine.MatchPattern(ctx, "x.c")
	require.NoError(t, err)
	assert.Equal(t, []int{int(live)}, matched.Members())

	all, err := f.engine.AllFiles(ctx)
	require.NoError(t, err)
	for id := range matched.All() {
		assert.True(t, all.IsMember(id), "pattern match %d is not a visible file", id)
	}
	assert.Equal(t, []string{"/d", "/d/x.c"}, f.paths(t, all))

	never, err := f.engine.FilesNeverAccessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{int(live)}, never.Members())
}

func TestMatchPattern_BadInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, p := range []string{"", "obj/*.o", "/"} {
		_, err := f.engine.MatchPattern(ctx, p)
		assert.True(t, IsBadPath(err), "pattern %q: %v", p, err)
		assert.False(t, IsInvalidName(err))
	}
}

func TestFilesUnder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	got, err := f.engine.FilesUnder(ctx, "/work/obj")
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/obj", "/work/obj/main.o", "/work/obj/util.o"}, f.paths(t, got))

	got, err = f.engine.FilesUnder(ctx, "/work/obj/../src/./")
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/src", "/work/src/main.c", "/work/src/util.c"}, f.paths(t, got))

	for _, bad := range []string{"work/obj", "/work/nope", ""} {
		_, err := f.engine.FilesUnder(ctx, bad)
		assert.True(t, IsBadPath(err), "input %q", bad)
	}
}

func TestComponents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	set, err := components.NewSet(
		components.Component{Name: "app", Paths: []string{"/work/src", "/work/include", "/work/missing"}},
		components.Component{Name: "libc", Patterns: []string{"libc.so*"}},
	)
	require.NoError(t, err)

	in, err := f.engine.FilesInComponent(ctx, set, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/work/include", "/work/include/util.h",
		"/work/src", "/work/src/main.c", "/work/src/util.c",
	}, f.paths(t, in))

	libc, err := f.engine.FilesInComponent(ctx, set, "libc")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/lib/libc.so.6"}, f.paths(t, libc))

	out, err := f.engine.FilesNotInComponent(ctx, set, "app")
	require.NoError(t, err)
	got := f.paths(t, out)
	assert.Contains(t, got, "/work/obj/main.o")
	assert.Contains(t, got, "/work")
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, "/work/src/main.c")

	all, err := f.engine.AllFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, all.Size(), in.Size()+out.Size())

	_, err = f.engine.FilesInComponent(ctx, set, "kernel")
	assert.True(t, IsInvalidName(err))
	_, err = f.engine.FilesNotInComponent(ctx, set, "kernel")
	assert.True(t, IsInvalidName(err))
}

func TestDerivedFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	direct, err := f.engine.DerivedFiles(ctx, f.set(t, "/work/src/main.c"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/obj/main.o"}, f.paths(t, direct))

	all, err := f.engine.DerivedFiles(ctx, f.set(t, "/work/src/main.c"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/bin/prog", "/work/build.log", "/work/obj/main.o"}, f.paths(t, all))

	header, err := f.engine.DerivedFiles(ctx, f.set(t, "/work/include/util.h"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/bin/prog", "/work/build.log", "/work/obj/main.o", "/work/obj/util.o"}, f.paths(t, header))

	none, err := f.engine.DerivedFiles(ctx, f.set(t, "/work/README"), true)
	require.NoError(t, err)
	assert.True(t, none.IsEmpty())
}

func TestInputFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	direct, err := f.engine.InputFiles(ctx, f.set(t, "/work/bin/prog"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/lib/libc.so.6", "/work/obj/main.o", "/work/obj/util.o"}, f.paths(t, direct))

	all, err := f.engine.InputFiles(ctx, f.set(t, "/work/bin/prog"), true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/usr/lib/libc.so.6",
		"/work/include/util.h",
		"/work/obj/main.o",
		"/work/obj/util.o",
		"/work/src/main.c",
		"/work/src/util.c",
	}, f.paths(t, all))
}

func TestAccessorsAndFilesAccessedBy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	readers, err := f.engine.AccessorsOf(ctx, f.set(t, "/work/include/util.h"), ir.AccessRead)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc -c main.c", "cc -c util.c"}, f.commands(t, readers))

	writers, err := f.engine.AccessorsOf(ctx, f.set(t, "/work/include/util.h"), ir.AccessWrite)
	require.NoError(t, err)
	assert.True(t, writers.IsEmpty())

	objs, err := f.engine.AccessorsOf(ctx, f.set(t, "/work/obj/main.o"), ir.AccessUnspecified)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc -c main.c", "ld -o prog"}, f.commands(t, objs))

	// Round trip: what did the link step write?
	linkers, err := f.engine.AccessorsOf(ctx, f.set(t, "/usr/lib/libc.so.6"), ir.AccessRead)
	require.NoError(t, err)
	outputs, err := f.engine.FilesAccessedBy(ctx, linkers, ir.AccessWrite)
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/bin/prog", "/work/build.log"}, f.paths(t, outputs))
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	never, err := f.engine.FilesNeverAccessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/README"}, f.paths(t, never))

	writeOnly, err := f.engine.WriteOnlyFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/bin/prog", "/work/build.log"}, f.paths(t, writeOnly))

	top, err := f.engine.MostAccessed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for _, pc := range top {
		assert.Equal(t, 2, pc.Count)
	}
	first, err := f.ns.FullPath(ctx, top[0].PathID)
	require.NoError(t, err)
	assert.Equal(t, "/work/include/util.h", first)

	empty, err := f.engine.MostAccessed(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestQueriesDoNotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	before, err := f.ns.MaxID(ctx)
	require.NoError(t, err)

	_, _ = f.engine.FilesUnder(ctx, "/not/there")
	_, _ = f.engine.MatchPattern(ctx, "*")
	_, _ = f.engine.DerivedFiles(ctx, f.set(t, "/work/src/util.c"), true)

	after, err := f.ns.MaxID(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestQueryError(t *testing.T) {
	err := &QueryError{Kind: KindBadPath, Input: "x", Message: "path must be absolute"}
	assert.Equal(t, `BAD_PATH: path must be absolute: "x"`, err.Error())
}
