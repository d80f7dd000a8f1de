package tracefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script is a human-editable trace: a YAML list of events that encodes to
// the binary protocol. Used by `buildml trace encode` and by tests.
//
//	events:
//	  - op: register
//	    path: /etc/passwd
//	  - op: program
//	    proc: 1
//	    parent: 0
//	    argv: [/tmp/prog]
//	  - op: read
//	    proc: 1
//	    path: /etc/passwd
type Script struct {
	Events []ScriptEvent `yaml:"events"`
}

// ScriptEvent is one scripted record. Op is the lower-case tag name
// (register, write, read, remove, rename, link, program).
type ScriptEvent struct {
	Op     string   `yaml:"op"`
	Proc   int32    `yaml:"proc"`
	Path   string   `yaml:"path,omitempty"`
	From   string   `yaml:"from,omitempty"`
	To     string   `yaml:"to,omitempty"`
	Target string   `yaml:"target,omitempty"`
	Parent int32    `yaml:"parent,omitempty"`
	Argv   []string `yaml:"argv,omitempty"`
	Envp   []string `yaml:"envp,omitempty"`
}

// ParseScript decodes a YAML script.
func ParseScript(r io.Reader) (*Script, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	var s Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &Script{}, nil
		}
		return nil, fmt.Errorf("parse script: %w", err)
	}
	return &s, nil
}

// Records converts the script to protocol records.
func (s *Script) Records() ([]Record, error) {
	recs := make([]Record, 0, len(s.Events))
	for i, ev := range s.Events {
		rec, err := ev.record()
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (ev ScriptEvent) record() (Record, error) {
	switch strings.ToLower(ev.Op) {
	case "register":
		return Register(ev.Proc, ev.Path), nil
	case "write":
		return Write(ev.Proc, ev.Path), nil
	case "read":
		return Read(ev.Proc, ev.Path), nil
	case "remove":
		return Remove(ev.Proc, ev.Path), nil
	case "rename":
		return Rename(ev.Proc, ev.From, ev.To), nil
	case "link":
		return NewLink(ev.Proc, ev.Target, ev.Path), nil
	case "program":
		if len(ev.Argv) == 0 {
			return Record{}, fmt.Errorf("program event needs argv")
		}
		return NewProgram(ev.Proc, ev.Parent, ev.Argv, ev.Envp), nil
	}
	return Record{}, fmt.Errorf("unknown op %q", ev.Op)
}
