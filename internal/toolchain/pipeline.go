// Package toolchain runs the full resolution: backend and driver probes,
// toolkit selection, support matrices and their intersection.
package toolchain

import (
	"context"
	"fmt"

	"cudaconf/internal/compat"
	"cudaconf/internal/fault"
	"cudaconf/internal/gpu"
	"cudaconf/internal/logging"
	"cudaconf/internal/store"
	"cudaconf/internal/support"
	"cudaconf/internal/toolkit"
	"cudaconf/internal/version"
)

// BackendProbe reports the compiler backend.
type BackendProbe interface {
	Detect(ctx context.Context) (support.BackendInfo, error)
}

// DriverProbe reports the installed driver.
type DriverProbe interface {
	Detect(ctx context.Context) (gpu.DriverInfo, error)
}

// ArtifactSource resolves downloadable toolkits.
type ArtifactSource interface {
	Resolve(ctx context.Context, c toolkit.Constraint) (toolkit.Descriptor, error)
}

// LocalSource finds an installed toolkit.
type LocalSource interface {
	Scan(ctx context.Context) (toolkit.Descriptor, error)
}

// SupportBuilder computes per-side support matrices.
type SupportBuilder interface {
	Backend(info support.BackendInfo) (support.Matrix, error)
	CUDA(driver, toolkit version.Version) (support.Matrix, error)
}

// Deps are the collaborators of a pipeline.
type Deps struct {
	Backend   BackendProbe
	Driver    DriverProbe
	Artifacts ArtifactSource
	Local     LocalSource
	Support   SupportBuilder
}

// Options control toolkit selection.
type Options struct {
	UseArtifacts bool
	// Pin forces an exact toolkit release; zero means none.
	Pin     version.Version
	Minimum version.Version
}

// WarnArtifactFallback is emitted when no artifact fits the driver and the
// local installation is used instead.
const WarnArtifactFallback = "toolkit.artifact.fallback"

// Pipeline runs one resolution pass.
type Pipeline struct {
	deps     Deps
	opts     Options
	resolver *compat.Resolver
	logger   *logging.Logger
}

// New creates a pipeline. A nil Deps.Support uses the built-in release tables.
func New(deps Deps, opts Options, logger *logging.Logger) *Pipeline {
	if deps.Support == nil {
		deps.Support = support.NewBuilder(logger)
	}
	return &Pipeline{
		deps:     deps,
		opts:     opts,
		resolver: compat.NewResolver(logger, opts.Minimum),
		logger:   logger,
	}
}

// Run resolves the toolchain. Every returned error carries a fault kind,
// except cancellation and I/O errors from the collaborators.
func (p *Pipeline) Run(ctx context.Context) (*Resolved, error) {
	backendInfo, err := p.deps.Backend.Detect(ctx)
	if err != nil {
		return nil, err
	}
	backendMatrix, err := p.deps.Support.Backend(backendInfo)
	if err != nil {
		return nil, err
	}

	driver, err := p.deps.Driver.Detect(ctx)
	if err != nil {
		return nil, err
	}

	desc, warnings, err := p.selectToolkit(ctx, driver.CUDA)
	if err != nil {
		return nil, err
	}

	cudaMatrix, err := p.deps.Support.CUDA(driver.CUDA, desc.Version)
	if err != nil {
		return nil, err
	}

	final, compatWarnings, err := p.resolver.Resolve(backendMatrix, cudaMatrix, desc.Version, driver.CUDA)
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, desc.Warnings...)
	warnings = append(warnings, compatWarnings...)

	p.logger.Info("toolchain.resolved", "Toolchain resolved", map[string]interface{}{
		"toolkit":  desc.Version.String(),
		"source":   string(desc.Source),
		"driver":   driver.CUDA.String(),
		"backend":  backendInfo.Version.String(),
		"warnings": len(warnings),
	})

	return &Resolved{
		Toolkit:       desc,
		Driver:        driver,
		Backend:       backendInfo,
		Matrix:        final,
		BackendMatrix: backendMatrix,
		CUDAMatrix:    cudaMatrix,
		Warnings:      warnings,
	}, nil
}

// selectToolkit chooses between the artifact and the local installation.
// A pin is honored exactly and never falls back; without one, an artifact
// compatible with the driver is preferred and the local scan is the
// fallback.
func (p *Pipeline) selectToolkit(ctx context.Context, driver version.Version) (toolkit.Descriptor, []fault.Warning, error) {
	pinned := !p.opts.Pin.IsZero()

	if !p.opts.UseArtifacts {
		desc, err := p.deps.Local.Scan(ctx)
		if err != nil {
			return toolkit.Descriptor{}, nil, err
		}
		if pinned && !toolkit.Exactly(p.opts.Pin).Allows(desc.Version) {
			return toolkit.Descriptor{}, nil, fault.New(fault.VersionMismatch,
				"requested CUDA %s but the local toolkit is %s", p.opts.Pin, desc.Version)
		}
		return desc, nil, nil
	}

	if pinned {
		desc, err := p.deps.Artifacts.Resolve(ctx, toolkit.Exactly(p.opts.Pin))
		return desc, nil, err
	}

	desc, err := p.deps.Artifacts.Resolve(ctx, toolkit.CompatibleWith(driver))
	if err == nil {
		return desc, nil, nil
	}
	if !fault.Is(err, fault.NoCompatibleArtifact) {
		return toolkit.Descriptor{}, nil, err
	}

	w := fault.Warning{
		Code:    WarnArtifactFallback,
		Message: fmt.Sprintf("no toolkit artifact for driver CUDA %s, using the local installation", driver),
	}
	p.logger.Warn(w.Code, w.Message, map[string]interface{}{
		"error": err.Error(),
	})

	local, err := p.deps.Local.Scan(ctx)
	if err != nil {
		return toolkit.Descriptor{}, nil, err
	}
	return local, []fault.Warning{w}, nil
}

// Commit runs the pipeline inside st.ResolveAndCommit.
func (p *Pipeline) Commit(ctx context.Context, st *store.Store) (store.Outcome, *Resolved, error) {
	var resolved *Resolved
	outcome, _, err := st.ResolveAndCommit(ctx, func(ctx context.Context) (store.Configuration, error) {
		r, err := p.Run(ctx)
		if err != nil {
			return store.Configuration{}, err
		}
		resolved = r
		return r.Configuration(), nil
	})
	if err != nil {
		return outcome, nil, err
	}
	return outcome, resolved, nil
}
