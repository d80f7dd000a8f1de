// Package ir provides the foundational record types for buildml.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the path/action model
// the bottom layer with no circular dependencies.
//
// Key design constraints:
//   - IDs are dense, append-only integers; nothing is ever renumbered
//   - Root path and root action are both ID 0 and are their own parent
//   - Access types are bitmasks so repeated accesses union cleanly
//   - All JSON tags use snake_case
package ir
