package support

import (
	"strings"

	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
	"cudaconf/internal/version"
)

// RequiredTarget is the code-generation target the backend must provide.
const RequiredTarget = "NVPTX"

// Matrix is the set of device targets and PTX ISA versions one side supports.
type Matrix struct {
	Targets version.Set
	ISAs    version.Set
}

// Intersect returns the element-wise intersection of two matrices.
func (m Matrix) Intersect(o Matrix) Matrix {
	return Matrix{
		Targets: m.Targets.Intersect(o.Targets),
		ISAs:    m.ISAs.Intersect(o.ISAs),
	}
}

// Equal reports whether both sets match.
func (m Matrix) Equal(o Matrix) bool {
	return m.Targets.Equal(o.Targets) && m.ISAs.Equal(o.ISAs)
}

// BackendInfo describes the compiler backend as reported by its probe.
type BackendInfo struct {
	Version version.Version
	Targets []string
}

// HasTarget reports whether the backend was built with the named target.
func (b BackendInfo) HasTarget(name string) bool {
	for _, t := range b.Targets {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}

// Builder computes support matrices and reports each one for triage.
type Builder struct {
	logger *logging.Logger
}

// NewBuilder creates a support matrix builder
func NewBuilder(logger *logging.Logger) *Builder {
	return &Builder{logger: logger}
}

// Backend returns what the compiler backend can generate.
func (b *Builder) Backend(info BackendInfo) (Matrix, error) {
	if !info.HasTarget(RequiredTarget) {
		return Matrix{}, fault.New(fault.UnsupportedBackend,
			"LLVM %s was built without the %s target (targets: %s)",
			info.Version, RequiredTarget, strings.Join(info.Targets, " "))
	}

	m := Matrix{
		Targets: LLVMTargets(info.Version),
		ISAs:    LLVMISAs(info.Version),
	}
	b.report("backend", info.Version, m)
	return m, nil
}

// CUDA returns what both the driver and the toolkit support.
func (b *Builder) CUDA(driver, toolkit version.Version) (Matrix, error) {
	toolkit = toolkit.MajorMinor()
	driver = driver.MajorMinor()

	if driver.Less(toolkit) {
		return Matrix{}, fault.New(fault.IncompatibleToolkit,
			"CUDA toolkit %s requires a driver supporting at least CUDA %s, installed driver supports %s",
			toolkit, toolkit, driver)
	}

	driverSide := Matrix{Targets: CUDATargets(driver), ISAs: CUDAISAs(driver)}
	toolkitSide := Matrix{Targets: CUDATargets(toolkit), ISAs: CUDAISAs(toolkit)}
	b.report("driver", driver, driverSide)
	b.report("toolkit", toolkit, toolkitSide)

	return driverSide.Intersect(toolkitSide), nil
}

func (b *Builder) report(source string, v version.Version, m Matrix) {
	b.logger.Debug("support.matrix", "Support matrix computed", map[string]interface{}{
		"source":  source,
		"version": v.String(),
		"targets": m.Targets.String(),
		"isas":    m.ISAs.String(),
	})
}
