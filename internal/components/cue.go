package components

import (
	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// ParseCUE compiles CUE source and reads the top-level "components" struct.
// Field order in the source is the definition order. filename is only used
// in error positions.
func ParseCUE(filename string, src []byte) (*Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("components"))
	if !root.Exists() {
		return NewSet()
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var comps []Component
	for iter.Next() {
		c, err := compileComponent(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return NewSet(comps...)
}

func compileComponent(name string, v cue.Value) (Component, error) {
	c := Component{Name: name}
	var err error
	if c.Paths, err = stringList(name, "paths", v); err != nil {
		return Component{}, err
	}
	if c.Patterns, err = stringList(name, "patterns", v); err != nil {
		return Component{}, err
	}
	return c, nil
}

// stringList decodes an optional list of strings at field.
func stringList(component, field string, v cue.Value) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &DefinitionError{Component: component, Field: field, Message: "must be a list of strings", Pos: fv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &DefinitionError{Component: component, Field: field, Message: "must be a list of strings", Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError keeps the first error and its source position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &DefinitionError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return first
}
