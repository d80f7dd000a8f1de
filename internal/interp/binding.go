package interp

import "github.com/roach88/buildml/internal/ir"

// ProcessBinding maps trace process numbers to the actions created for them.
// It lives for exactly one ingestion, so separate ingestions never share
// bindings.
type ProcessBinding struct {
	actions map[int32]ir.ActionID
}

// NewProcessBinding returns an empty binding.
func NewProcessBinding() *ProcessBinding {
	return &ProcessBinding{actions: make(map[int32]ir.ActionID)}
}

// Bind associates process with action, replacing any earlier binding.
func (b *ProcessBinding) Bind(process int32, action ir.ActionID) {
	b.actions[process] = action
}

// Lookup returns the action bound to process.
func (b *ProcessBinding) Lookup(process int32) (ir.ActionID, bool) {
	id, ok := b.actions[process]
	return id, ok
}

// Len returns the number of bound processes.
func (b *ProcessBinding) Len() int {
	return len(b.actions)
}
