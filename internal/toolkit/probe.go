package toolkit

import (
	"os"
	"path/filepath"

	"cudaconf/internal/fsutil"
)

// Prober finds toolkit files below a set of roots.
type Prober interface {
	// FindBinary looks for executable name in each root's bin directory.
	FindBinary(name string, roots []string) (string, bool)
	// FindLibrary looks for file name in each root's library directories.
	// A versioned sibling (name.<v>) is accepted for every listed version.
	FindLibrary(name string, roots []string, versions []string) (string, bool)
}

// FSProber probes the local filesystem.
type FSProber struct {
	Naming Naming
	Layout Layout
}

// FindBinary implements Prober.
func (p FSProber) FindBinary(name string, roots []string) (string, bool) {
	file := p.Naming.Binary(name)
	for _, root := range roots {
		candidate := filepath.Join(root, "bin", file)
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// FindLibrary implements Prober.
func (p FSProber) FindLibrary(name string, roots []string, versions []string) (string, bool) {
	dirs := p.Naming.LibraryDirs(p.Layout)
	for _, root := range roots {
		for _, dir := range dirs {
			base := filepath.Join(root, dir, name)
			if fsutil.FileExists(base) {
				return base, true
			}
			for _, v := range versions {
				if candidate := base + "." + v; fsutil.FileExists(candidate) {
					return candidate, true
				}
			}
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return filepath.Ext(path) == ".exe" || info.Mode().Perm()&0o111 != 0
}
