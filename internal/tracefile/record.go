package tracefile

import "fmt"

// Tag identifies the record kind. It is the first byte of every record.
type Tag uint8

const (
	TagRegister   Tag = 1
	TagWrite      Tag = 2
	TagRead       Tag = 3
	TagRemove     Tag = 4
	TagRename     Tag = 5
	TagNewLink    Tag = 6
	TagNewProgram Tag = 7
)

// Tags lists every known tag in protocol order.
var Tags = []Tag{TagRegister, TagWrite, TagRead, TagRemove, TagRename, TagNewLink, TagNewProgram}

// Valid reports whether t is part of the protocol.
func (t Tag) Valid() bool {
	return t >= TagRegister && t <= TagNewProgram
}

func (t Tag) String() string {
	switch t {
	case TagRegister:
		return "REGISTER"
	case TagWrite:
		return "WRITE"
	case TagRead:
		return "READ"
	case TagRemove:
		return "REMOVE"
	case TagRename:
		return "RENAME"
	case TagNewLink:
		return "NEW_LINK"
	case TagNewProgram:
		return "NEW_PROGRAM"
	}
	return fmt.Sprintf("TAG(%d)", uint8(t))
}

// Record is one decoded trace event.
//
// Field use by tag:
//   - REGISTER, WRITE, READ, REMOVE: Path
//   - RENAME: Path (old), NewPath (new)
//   - NEW_LINK: Path (link target), NewPath (link location)
//   - NEW_PROGRAM: Parent, Argv, Envp
type Record struct {
	Tag     Tag      `json:"tag"`
	Process int32    `json:"process"`
	Path    string   `json:"path,omitempty"`
	NewPath string   `json:"new_path,omitempty"`
	Parent  int32    `json:"parent,omitempty"`
	Argv    []string `json:"argv,omitempty"`
	Envp    []string `json:"envp,omitempty"`
}

// Register builds a REGISTER record.
func Register(proc int32, path string) Record {
	return Record{Tag: TagRegister, Process: proc, Path: path}
}

// Read builds a READ record.
func Read(proc int32, path string) Record {
	return Record{Tag: TagRead, Process: proc, Path: path}
}

// Write builds a WRITE record.
func Write(proc int32, path string) Record {
	return Record{Tag: TagWrite, Process: proc, Path: path}
}

// Remove builds a REMOVE record.
func Remove(proc int32, path string) Record {
	return Record{Tag: TagRemove, Process: proc, Path: path}
}

// Rename builds a RENAME record.
func Rename(proc int32, oldPath, newPath string) Record {
	return Record{Tag: TagRename, Process: proc, Path: oldPath, NewPath: newPath}
}

// NewLink builds a NEW_LINK record.
func NewLink(proc int32, target, linkPath string) Record {
	return Record{Tag: TagNewLink, Process: proc, Path: target, NewPath: linkPath}
}

// NewProgram builds a NEW_PROGRAM record.
func NewProgram(proc, parent int32, argv, envp []string) Record {
	return Record{Tag: TagNewProgram, Process: proc, Parent: parent, Argv: argv, Envp: envp}
}

// String renders the record on one line, as `buildml trace dump` prints it.
func (r Record) String() string {
	switch r.Tag {
	case TagRename:
		return fmt.Sprintf("%s proc=%d %s -> %s", r.Tag, r.Process, r.Path, r.NewPath)
	case TagNewLink:
		return fmt.Sprintf("%s proc=%d %s -> %s", r.Tag, r.Process, r.NewPath, r.Path)
	case TagNewProgram:
		return fmt.Sprintf("%s proc=%d parent=%d argv=%q envc=%d", r.Tag, r.Process, r.Parent, r.Argv, len(r.Envp))
	}
	return fmt.Sprintf("%s proc=%d %s", r.Tag, r.Process, r.Path)
}
