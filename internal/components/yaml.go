package components

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Components []Component `yaml:"components"`
}

// ParseYAML parses a YAML component list. Unknown keys are rejected.
func ParseYAML(data []byte) (*Set, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f yamlFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse components yaml: %w", err)
	}
	return NewSet(f.Components...)
}
