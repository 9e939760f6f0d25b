package toolchain

import (
	"cudaconf/internal/fault"
	"cudaconf/internal/gpu"
	"cudaconf/internal/store"
	"cudaconf/internal/support"
	"cudaconf/internal/toolkit"
)

// Resolved is the outcome of one resolution pass. It is built once by
// Pipeline.Run and not modified afterwards; consumers share the pointer.
type Resolved struct {
	Toolkit toolkit.Descriptor
	Driver  gpu.DriverInfo
	Backend support.BackendInfo

	// Matrix is the final intersection; BackendMatrix and CUDAMatrix are
	// the per-side inputs.
	Matrix        support.Matrix
	BackendMatrix support.Matrix
	CUDAMatrix    support.Matrix

	Warnings []fault.Warning
}

// Configuration returns the persisted form of r.
func (r *Resolved) Configuration() store.Configuration {
	paths := make(map[toolkit.Component]string, len(toolkit.Components))
	for _, c := range toolkit.Components {
		if p, ok := r.Toolkit.Path(c); ok {
			paths[c] = p
		}
	}

	return store.Configuration{
		Schema:        store.SchemaVersion,
		Resolved:      true,
		Driver:        r.Driver.CUDA,
		Backend:       r.Backend.Version,
		Toolkit:       r.Toolkit.Version,
		ToolkitSource: r.Toolkit.Source,
		ToolkitRoots:  append([]string(nil), r.Toolkit.Roots...),
		Targets:       r.Matrix.Targets.Slice(),
		ISAs:          r.Matrix.ISAs.Slice(),
		Paths:         paths,
	}
}
