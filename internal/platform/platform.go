// Package platform holds the narrow OS capabilities the rest of the module
// needs. Everything else works on recorded paths and never touches the
// local filesystem.
package platform

// Symlinks inspects and creates symbolic links on the local filesystem.
type Symlinks interface {
	// IsSymlink reports whether path itself (not its target) is a link.
	IsSymlink(path string) (bool, error)

	// ReadSymlink returns the link's target exactly as stored.
	ReadSymlink(path string) (string, error)

	// CreateSymlink creates linkPath pointing at target.
	CreateSymlink(target, linkPath string) error
}

// Local returns the Symlinks implementation for the running OS.
func Local() Symlinks {
	return localSymlinks{}
}
