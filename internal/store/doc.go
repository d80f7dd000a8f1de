// Package store provides SQLite-backed durable storage for a build graph.
//
// The store holds four tables:
//   - paths: the interned file namespace (id, parent, name, type)
//   - actions: recorded processes (id, parent, command, argv)
//   - accesses: one row per (action, path) with an OR-ed access bitmask
//   - sessions: one row per trace ingestion
//
// # Critical Patterns
//
// Append-only identity:
//   - IDs are SQLite rowids, assigned densely and never reused
//   - Root path and root action are ID 0 and are their own parent
//   - Removal hides a path; rename updates it in place
//
// Session boundaries:
//   - Begin opens a transaction that every later call runs inside
//   - Commit makes the whole ingestion prefix durable at once
//   - The session row itself is written outside the transaction, so a
//     crashed ingestion is still visible as "running"
//
// Deterministic reads:
//   - Children are ordered by name (paths) or ID (actions)
//   - Access lists are ordered by first-recorded time (rowid)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Access rows must reference existing paths/actions
//
// The store does not serialize ingestion against queries. While a session
// is open every call runs inside its transaction, so other goroutines must
// not use the same Store until Commit or Rollback.
package store
