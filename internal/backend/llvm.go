// Package backend probes the LLVM installation used for device code generation.
package backend

import (
	"context"
	"strings"

	"cudaconf/internal/execx"
	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
	"cudaconf/internal/support"
	"cudaconf/internal/version"
)

// Probe queries llvm-config.
type Probe struct {
	llvmConfig string
	run        execx.Runner
	logger     *logging.Logger
}

// NewProbe creates a probe for the given llvm-config binary.
func NewProbe(llvmConfig string, run execx.Runner, logger *logging.Logger) *Probe {
	if run == nil {
		run = execx.Run
	}
	return &Probe{llvmConfig: llvmConfig, run: run, logger: logger}
}

// Detect returns the backend version and its built targets.
func (p *Probe) Detect(ctx context.Context) (support.BackendInfo, error) {
	out, err := p.run(ctx, p.llvmConfig, "--version")
	if err != nil {
		return support.BackendInfo{}, fault.Wrap(fault.MissingDependency, err, "LLVM is not available (%s)", p.llvmConfig)
	}

	// Vendor builds append suffixes such as "15.0.7git" or "14.0.0-rc1".
	raw := strings.TrimSpace(string(out))
	v, err := version.Parse(numericPrefix(raw))
	if err != nil {
		return support.BackendInfo{}, fault.Wrap(fault.MissingDependency, err, "unexpected %s --version output %q", p.llvmConfig, raw)
	}

	out, err = p.run(ctx, p.llvmConfig, "--targets-built")
	if err != nil {
		return support.BackendInfo{}, fault.Wrap(fault.MissingDependency, err, "cannot list LLVM targets")
	}
	targets := strings.Fields(string(out))

	p.logger.Info("backend.detected", "LLVM backend detected", map[string]interface{}{
		"version": v.String(),
		"targets": targets,
	})

	return support.BackendInfo{Version: v, Targets: targets}, nil
}

func numericPrefix(s string) string {
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	return strings.TrimSuffix(s[:end], ".")
}
