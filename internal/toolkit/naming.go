package toolkit

import (
	"path/filepath"
	"runtime"
)

// Layout distinguishes the directory structure of an installation.
type Layout int

const (
	// LayoutLocal is a toolkit installed by the NVIDIA installer or a distro package.
	LayoutLocal Layout = iota
	// LayoutArtifact is an extracted redistributable bundle.
	LayoutArtifact
)

const (
	disassemblerName = "cuobjdump"
	cuptiName        = "cupti"
	nvtxName         = "nvToolsExt"
	devrtName        = "cudadevrt"
	bitcodeFile      = "libdevice.10.bc"
)

// Naming maps logical names to platform file names.
type Naming struct {
	GOOS string
}

// HostNaming returns the naming convention of the running platform.
func HostNaming() Naming {
	return Naming{GOOS: runtime.GOOS}
}

// Binary returns the executable file name for name.
func (n Naming) Binary(name string) string {
	if n.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// SharedLibrary returns the unversioned shared library file name for name.
func (n Naming) SharedLibrary(name string) string {
	switch n.GOOS {
	case "windows":
		return name + ".dll"
	case "darwin":
		return "lib" + name + ".dylib"
	default:
		return "lib" + name + ".so"
	}
}

// StaticLibrary returns the static archive file name for name.
func (n Naming) StaticLibrary(name string) string {
	if n.GOOS == "windows" {
		return name + ".lib"
	}
	return "lib" + name + ".a"
}

// BitcodeDir returns the directory holding libdevice, relative to a root.
func (n Naming) BitcodeDir(layout Layout) string {
	if layout == LayoutArtifact {
		return filepath.Join("share", "libdevice")
	}
	return filepath.Join("nvvm", "libdevice")
}

// LibraryDirs returns the directories, relative to a root, that may hold
// libraries and data files for the given layout.
func (n Naming) LibraryDirs(layout Layout) []string {
	dirs := []string{
		"lib64",
		"lib",
		filepath.Join("lib", "x64"),
		filepath.Join("extras", "CUPTI", "lib64"),
		filepath.Join("extras", "CUPTI", "lib", "x64"),
		"bin",
	}
	return append(dirs, n.BitcodeDir(layout))
}
