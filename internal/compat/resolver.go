// Package compat intersects the backend and CUDA support matrices into the
// final set of targets and instruction sets a build may use.
package compat

import (
	"fmt"

	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
	"cudaconf/internal/support"
	"cudaconf/internal/version"
)

// Warning codes emitted by Resolve.
const (
	WarnBelowMinimum   = "toolkit.below_minimum"
	WarnAboveDriver    = "toolkit.above_driver"
	WarnUnknownRelease = "toolkit.unknown_release"
)

// Resolver composes support matrices.
type Resolver struct {
	logger  *logging.Logger
	minimum version.Version
}

// NewResolver creates a resolver that warns about toolkits older than minimum.
func NewResolver(logger *logging.Logger, minimum version.Version) *Resolver {
	return &Resolver{logger: logger, minimum: minimum.MajorMinor()}
}

// Resolve intersects the backend and CUDA matrices. The target set is
// checked before the ISA set, so an input with both sides empty reports
// NoCompatibleTarget.
func (r *Resolver) Resolve(backend, cuda support.Matrix, toolkit, driver version.Version) (support.Matrix, []fault.Warning, error) {
	final := backend.Intersect(cuda)

	if final.Targets.IsEmpty() {
		return support.Matrix{}, nil, fault.New(fault.NoCompatibleTarget,
			"no device target is supported by both LLVM %s and CUDA %s",
			backend.Targets, cuda.Targets)
	}
	if final.ISAs.IsEmpty() {
		return support.Matrix{}, nil, fault.New(fault.NoCompatibleInstructionSet,
			"no PTX ISA version is supported by both LLVM %s and CUDA %s",
			backend.ISAs, cuda.ISAs)
	}

	warnings := r.check(toolkit.MajorMinor(), driver.MajorMinor())
	for _, w := range warnings {
		r.logger.Warn(w.Code, w.Message, map[string]interface{}{
			"toolkit": toolkit.String(),
			"driver":  driver.String(),
		})
	}

	r.logger.Info("compat.resolved", "Compatibility matrix resolved", map[string]interface{}{
		"targets": final.Targets.String(),
		"isas":    final.ISAs.String(),
	})

	return final, warnings, nil
}

func (r *Resolver) check(toolkit, driver version.Version) []fault.Warning {
	var warnings []fault.Warning

	if !r.minimum.IsZero() && toolkit.Less(r.minimum) {
		warnings = append(warnings, fault.Warning{
			Code:    WarnBelowMinimum,
			Message: fmt.Sprintf("CUDA toolkit %s is older than the minimum supported release %s", toolkit, r.minimum),
		})
	}
	if !driver.IsZero() && driver.Less(toolkit) {
		warnings = append(warnings, fault.Warning{
			Code:    WarnAboveDriver,
			Message: fmt.Sprintf("CUDA toolkit %s is newer than the installed driver supports (%s)", toolkit, driver),
		})
	}
	if support.NewestKnownRelease.Less(toolkit) {
		warnings = append(warnings, fault.Warning{
			Code:    WarnUnknownRelease,
			Message: fmt.Sprintf("CUDA toolkit %s is newer than the newest known release %s; support tables may be incomplete", toolkit, support.NewestKnownRelease),
		})
	}

	return warnings
}
