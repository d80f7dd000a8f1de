package ir

import "fmt"

// PathID identifies an interned path in the file namespace.
// IDs are dense, append-only and never renumbered.
type PathID int

// ActionID identifies an action (recorded process) in the action graph.
type ActionID int

const (
	// RootPath is the namespace root ("/"). Its parent is itself.
	RootPath PathID = 0

	// RootAction is the top of the action tree. It has no parent.
	RootAction ActionID = 0

	// RootCommand is the command summary recorded for the root action.
	RootCommand = "root"
)

// PathType classifies a namespace entry.
type PathType int

const (
	PathTypeInvalid PathType = iota
	PathTypeDir
	PathTypeFile
	PathTypeSymlink
)

// String returns the lower-case name used in the store and CLI output.
func (t PathType) String() string {
	switch t {
	case PathTypeDir:
		return "dir"
	case PathTypeFile:
		return "file"
	case PathTypeSymlink:
		return "symlink"
	default:
		return "invalid"
	}
}

// ParsePathType is the inverse of PathType.String.
func ParsePathType(s string) (PathType, error) {
	switch s {
	case "dir":
		return PathTypeDir, nil
	case "file":
		return PathTypeFile, nil
	case "symlink":
		return PathTypeSymlink, nil
	case "invalid":
		return PathTypeInvalid, nil
	}
	return PathTypeInvalid, fmt.Errorf("unknown path type %q", s)
}

// AccessType is a bitmask of the ways an action touched a path.
// Multiple records for the same (action, path) are OR-ed together.
type AccessType int

const (
	// AccessUnspecified used as a filter means "any access".
	AccessUnspecified AccessType = 0
	AccessRead        AccessType = 1 << 0
	AccessWrite       AccessType = 1 << 1
)

// Matches reports whether a recorded access mask satisfies the filter.
// AccessUnspecified matches every non-empty mask.
func (t AccessType) Matches(filter AccessType) bool {
	if filter == AccessUnspecified {
		return t != 0
	}
	return t&filter == filter
}

// String renders the mask as "read", "write", "read|write" or "unspecified".
func (t AccessType) String() string {
	switch t {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessRead | AccessWrite:
		return "read|write"
	default:
		return "unspecified"
	}
}

// ParseAccessType parses a CLI filter value. "any" and "" map to AccessUnspecified.
func ParseAccessType(s string) (AccessType, error) {
	switch s {
	case "", "any", "unspecified":
		return AccessUnspecified, nil
	case "read", "r":
		return AccessRead, nil
	case "write", "w":
		return AccessWrite, nil
	}
	return AccessUnspecified, fmt.Errorf("unknown access type %q (want read|write|any)", s)
}

// Path is one node of the file namespace.
type Path struct {
	ID       PathID   `json:"id"`
	ParentID PathID   `json:"parent_id"`
	Name     string   `json:"name"`
	Type     PathType `json:"type"`
	Hidden   bool     `json:"hidden,omitempty"` // logically removed, ID retained
	Target   string   `json:"target,omitempty"` // symlink target, if any
}

// Action is one recorded process invocation.
type Action struct {
	ID       ActionID `json:"id"`
	ParentID ActionID `json:"parent_id"`
	Argv     []string `json:"argv"`
	Command  string   `json:"command"`
}

// AccessEdge records that an action read and/or wrote a path.
type AccessEdge struct {
	ActionID ActionID   `json:"action_id"`
	PathID   PathID     `json:"path_id"`
	Type     AccessType `json:"access_type"`
}
