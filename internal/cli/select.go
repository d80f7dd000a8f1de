package cli

import (
	"context"
	"slices"

	"github.com/spf13/pflag"

	"github.com/roach88/buildml/internal/ir"
	"github.com/roach88/buildml/internal/treeset"
)

// fileSelector turns the file filter flags into a FileSet. Repeated
// --pattern or --under values are unioned; different filters intersect.
type fileSelector struct {
	Patterns       []string
	Under          []string
	Component      string
	NotIn          string
	ComponentsFile string
}

func (s *fileSelector) bind(fs *pflag.FlagSet) {
	fs.StringArrayVar(&s.Patterns, "pattern", nil, "base-name pattern, '*' matches any run of characters (repeatable)")
	fs.StringArrayVar(&s.Under, "under", nil, "absolute path whose subtree to select (repeatable)")
	fs.StringVar(&s.Component, "component", "", "select files in this component")
	fs.StringVar(&s.NotIn, "not-in", "", "select files outside this component")
	fs.StringVar(&s.ComponentsFile, "components", "", "component definitions file (.cue or .yaml)")
}

func (s *fileSelector) empty() bool {
	return len(s.Patterns) == 0 && len(s.Under) == 0 && s.Component == "" && s.NotIn == ""
}

// resolve evaluates the filters. With no filters it returns every file.
func (s *fileSelector) resolve(ctx context.Context, a *app) (*treeset.Set, error) {
	eng := a.engine()
	if s.empty() {
		return eng.AllFiles(ctx)
	}

	var result *treeset.Set
	narrow := func(set *treeset.Set) {
		if result == nil {
			result = set
			return
		}
		result.Intersect(set)
	}

	if len(s.Patterns) > 0 {
		union, err := unionOf(s.Patterns, func(p string) (*treeset.Set, error) {
			return eng.MatchPattern(ctx, p)
		})
		if err != nil {
			return nil, err
		}
		narrow(union)
	}
	if len(s.Under) > 0 {
		union, err := unionOf(s.Under, func(p string) (*treeset.Set, error) {
			return eng.FilesUnder(ctx, p)
		})
		if err != nil {
			return nil, err
		}
		narrow(union)
	}
	if s.Component != "" || s.NotIn != "" {
		set, err := a.components(s.ComponentsFile)
		if err != nil {
			return nil, err
		}
		if s.Component != "" {
			in, err := eng.FilesInComponent(ctx, set, s.Component)
			if err != nil {
				return nil, err
			}
			narrow(in)
		}
		if s.NotIn != "" {
			out, err := eng.FilesNotInComponent(ctx, set, s.NotIn)
			if err != nil {
				return nil, err
			}
			narrow(out)
		}
	}
	return result, nil
}

func unionOf(inputs []string, eval func(string) (*treeset.Set, error)) (*treeset.Set, error) {
	var union *treeset.Set
	for _, in := range inputs {
		set, err := eval(in)
		if err != nil {
			return nil, err
		}
		if union == nil {
			union = set
		} else {
			union.MergeSet(set)
		}
	}
	return union, nil
}

// fullPaths renders a FileSet as sorted absolute paths.
func (a *app) fullPaths(ctx context.Context, set *treeset.Set) ([]string, error) {
	paths := make([]string, 0, set.Size())
	for id := range set.All() {
		p, err := a.ns.FullPath(ctx, ir.PathID(id))
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths, nil
}

// ActionSummary identifies one action in command output.
type ActionSummary struct {
	ID      ir.ActionID `json:"id"`
	Command string      `json:"command"`
}

func (a *app) actionSummaries(ctx context.Context, set *treeset.Set) ([]ActionSummary, error) {
	out := make([]ActionSummary, 0, set.Size())
	for id := range set.All() {
		cmd, err := a.graph.Command(ctx, ir.ActionID(id))
		if err != nil {
			return nil, err
		}
		out = append(out, ActionSummary{ID: ir.ActionID(id), Command: cmd})
	}
	return out, nil
}
