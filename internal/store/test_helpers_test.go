package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/buildml/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustInsertPath inserts a path and fails the test on error.
func mustInsertPath(t *testing.T, s *Store, parent ir.PathID, name string, typ ir.PathType) ir.PathID {
	t.Helper()
	id, err := s.InsertPath(context.Background(), parent, name, typ)
	if err != nil {
		t.Fatalf("InsertPath(%d, %q) failed: %v", parent, name, err)
	}
	return id
}

// mustInsertAction inserts an action and fails the test on error.
func mustInsertAction(t *testing.T, s *Store, parent ir.ActionID, argv ...string) ir.ActionID {
	t.Helper()
	id, err := s.InsertAction(context.Background(), parent, argv, argv[0])
	if err != nil {
		t.Fatalf("InsertAction(%d, %v) failed: %v", parent, argv, err)
	}
	return id
}
