package toolkit

import (
	"context"
	"fmt"
	"regexp"

	"cudaconf/internal/execx"
	"cudaconf/internal/version"
)

// VersionQuerier asks a toolkit binary which release it belongs to.
type VersionQuerier interface {
	QueryVersion(ctx context.Context, path string) (version.Version, error)
}

// ExecQuerier runs "<binary> --version".
type ExecQuerier struct {
	Run execx.Runner
}

// NewExecQuerier creates a querier backed by run, or by execx.Run when nil.
func NewExecQuerier(run execx.Runner) ExecQuerier {
	if run == nil {
		run = execx.Run
	}
	return ExecQuerier{Run: run}
}

var releasePattern = regexp.MustCompile(`release (\d+)\.(\d+)`)

// QueryVersion implements VersionQuerier.
func (q ExecQuerier) QueryVersion(ctx context.Context, path string) (version.Version, error) {
	out, err := q.Run(ctx, path, "--version")
	if err != nil {
		return version.Version{}, fmt.Errorf("failed to query %s: %w", path, err)
	}
	return ParseRelease(string(out))
}

// ParseRelease extracts the "release X.Y" marker printed by the CUDA tools,
// e.g. "Cuda compilation tools, release 11.8, V11.8.89".
func ParseRelease(output string) (version.Version, error) {
	m := releasePattern.FindStringSubmatch(output)
	if m == nil {
		return version.Version{}, fmt.Errorf("no release marker in version output %q", output)
	}
	return version.Parse(m[1] + "." + m[2])
}
