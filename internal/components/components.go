// Package components loads named groupings of files ("components") used to
// partition the file namespace in queries.
//
// A component is a set of absolute path prefixes, each naming a whole
// subtree, plus base-name patterns using '*' as a wildcard. Definitions are
// read from YAML or CUE:
//
//	# components.yaml
//	components:
//	  - name: libc
//	    paths: [/usr/lib/libc]
//	    patterns: ["libc.so*"]
//
//	// components.cue
//	components: libc: {
//		paths: ["/usr/lib/libc"]
//		patterns: ["libc.so*"]
//	}
package components

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue/token"
)

// Component is one named grouping of files.
type Component struct {
	Name     string   `json:"name" yaml:"name"`
	Paths    []string `json:"paths,omitempty" yaml:"paths"`
	Patterns []string `json:"patterns,omitempty" yaml:"patterns"`
}

// Set is an immutable collection of components, looked up by name.
type Set struct {
	order  []string
	byName map[string]Component
}

// DefinitionError reports an invalid component definition.
type DefinitionError struct {
	Component string
	Field     string
	Message   string
	Pos       token.Pos // CUE position if available
}

func (e *DefinitionError) Error() string {
	where := e.Field
	if e.Component != "" {
		where = e.Component + "." + e.Field
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), where, e.Message)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

// NewSet validates comps and returns them as a Set. Names must be unique and
// non-empty, paths absolute, patterns free of '/'.
func NewSet(comps ...Component) (*Set, error) {
	s := &Set{byName: make(map[string]Component, len(comps))}
	for _, c := range comps {
		if err := validate(c); err != nil {
			return nil, err
		}
		if _, dup := s.byName[c.Name]; dup {
			return nil, &DefinitionError{Component: c.Name, Field: "name", Message: "duplicate component"}
		}
		s.byName[c.Name] = c
		s.order = append(s.order, c.Name)
	}
	return s, nil
}

func validate(c Component) error {
	if strings.TrimSpace(c.Name) == "" {
		return &DefinitionError{Field: "name", Message: "name is required"}
	}
	if len(c.Paths) == 0 && len(c.Patterns) == 0 {
		return &DefinitionError{Component: c.Name, Field: "paths", Message: "at least one path or pattern is required"}
	}
	for _, p := range c.Paths {
		if !strings.HasPrefix(p, "/") {
			return &DefinitionError{Component: c.Name, Field: "paths", Message: fmt.Sprintf("%q is not absolute", p)}
		}
	}
	for _, p := range c.Patterns {
		if p == "" || strings.Contains(p, "/") {
			return &DefinitionError{Component: c.Name, Field: "patterns", Message: fmt.Sprintf("%q must be a non-empty base-name pattern", p)}
		}
	}
	return nil
}

// Lookup returns the component called name.
func (s *Set) Lookup(name string) (Component, bool) {
	if s == nil {
		return Component{}, false
	}
	c, ok := s.byName[name]
	return c, ok
}

// Names returns component names in definition order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// SortedNames returns component names alphabetically.
func (s *Set) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}

// Len returns the number of components.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// LoadFile reads definitions from path, choosing the format by extension:
// .cue for CUE, .yaml or .yml for YAML.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read components: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return nil, fmt.Errorf("read components %s: unsupported file type (want .cue, .yaml or .yml)", path)
}
