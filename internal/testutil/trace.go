package testutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/roach88/buildml/internal/store"
	"github.com/roach88/buildml/internal/tracefile"
)

// OpenStore opens a fresh store in a temp dir, closed when the test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// EncodeTrace encodes records into an uncompressed binary trace.
func EncodeTrace(t testing.TB, recs ...tracefile.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := tracefile.NewWriter(&buf)
	require.NoError(t, w.WriteAll(recs))
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

// GzipTrace encodes records into a gzip-compressed binary trace.
func GzipTrace(t testing.TB, recs ...tracefile.Record) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(EncodeTrace(t, recs...))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
