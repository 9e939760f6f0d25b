// Package toolkit locates a CUDA toolkit, either from a downloadable
// artifact or from a local installation, and derives the paths of the
// components a build needs.
package toolkit

import (
	"cudaconf/internal/fault"
	"cudaconf/internal/version"
)

// Component is a logical toolkit file.
type Component string

const (
	Disassembler  Component = "disassembler"
	CUPTI         Component = "cupti"
	NVTX          Component = "nvtx"
	StaticDevRT   Component = "static-devrt-lib"
	DeviceBitcode Component = "device-bitcode"
)

// Components lists every component in persisted order.
var Components = []Component{Disassembler, CUPTI, NVTX, StaticDevRT, DeviceBitcode}

// Required reports whether resolution must fail when c is absent.
func (c Component) Required() bool {
	switch c {
	case Disassembler, StaticDevRT, DeviceBitcode:
		return true
	default:
		return false
	}
}

// Source records where a toolkit came from.
type Source string

const (
	SourceArtifact Source = "artifact"
	SourceLocal    Source = "local"
)

// Descriptor describes one resolved toolkit. Paths only holds components
// that were found; optional components may be missing.
type Descriptor struct {
	Version  version.Version
	Source   Source
	Roots    []string
	Paths    map[Component]string
	Warnings []fault.Warning
}

// Path returns the resolved path of c.
func (d Descriptor) Path(c Component) (string, bool) {
	p, ok := d.Paths[c]
	return p, ok && p != ""
}
