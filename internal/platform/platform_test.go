//go:build unix

package platform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSymlinks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "libz.so.1")
	link := filepath.Join(dir, "libz.so")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	s := Local()
	require.NoError(t, s.CreateSymlink("libz.so.1", link))

	isLink, err := s.IsSymlink(link)
	require.NoError(t, err)
	assert.True(t, isLink)

	isLink, err = s.IsSymlink(file)
	require.NoError(t, err)
	assert.False(t, isLink)

	target, err := s.ReadSymlink(link)
	require.NoError(t, err)
	assert.Equal(t, "libz.so.1", target)

	err = s.CreateSymlink("other", link)
	assert.ErrorContains(t, err, "already exists")
}

func TestReadSymlink_LongTarget(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "long")
	target := strings.Repeat("a/", 300) + "end"

	s := Local()
	require.NoError(t, s.CreateSymlink(target, link))
	got, err := s.ReadSymlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestLocalSymlinks_Missing(t *testing.T) {
	s := Local()
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := s.IsSymlink(missing)
	assert.Error(t, err)
	_, err = s.ReadSymlink(missing)
	assert.Error(t, err)
}
