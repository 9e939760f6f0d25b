package toolkit

import (
	"context"
	"fmt"
	"sort"

	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
	"cudaconf/internal/version"
)

// Constraint restricts which artifact versions may be used.
type Constraint struct {
	exact bool
	bound version.Version
}

// Exactly accepts only v. A pin without a patch matches any patch release.
func Exactly(v version.Version) Constraint {
	return Constraint{exact: true, bound: v}
}

// CompatibleWith accepts releases the driver can run.
func CompatibleWith(driver version.Version) Constraint {
	return Constraint{bound: driver.MajorMinor()}
}

// IsExact reports whether the constraint is a pin.
func (c Constraint) IsExact() bool { return c.exact }

// Allows reports whether v satisfies the constraint.
func (c Constraint) Allows(v version.Version) bool {
	if c.exact {
		if c.bound.Patch != 0 {
			return v == c.bound
		}
		return v.MajorMinor() == c.bound.MajorMinor()
	}
	return !c.bound.Less(v.MajorMinor())
}

func (c Constraint) String() string {
	if c.exact {
		return "== " + c.bound.String()
	}
	return "<= " + c.bound.String()
}

// Artifact is a downloadable toolkit release. Materialize returns the
// directory the artifact was extracted to.
type Artifact struct {
	Version     version.Version
	Materialize func(ctx context.Context) (string, error)
}

// ArtifactResolver selects and materializes toolkit artifacts.
type ArtifactResolver struct {
	logger    *logging.Logger
	artifacts []Artifact
	naming    Naming
	querier   VersionQuerier
}

// NewArtifactResolver creates a resolver over the known artifacts. querier
// may be nil to skip the disassembler release check.
func NewArtifactResolver(logger *logging.Logger, artifacts []Artifact, naming Naming, querier VersionQuerier) *ArtifactResolver {
	return &ArtifactResolver{
		logger:    logger,
		artifacts: artifacts,
		naming:    naming,
		querier:   querier,
	}
}

// Candidates returns the artifacts satisfying c, newest first.
func (r *ArtifactResolver) Candidates(c Constraint) []Artifact {
	var out []Artifact
	for _, a := range r.artifacts {
		if c.Allows(a.Version) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[j].Version.Less(out[i].Version) })
	return out
}

// Resolve materializes the newest artifact satisfying c. A failed
// materialization falls through to the next lower candidate.
func (r *ArtifactResolver) Resolve(ctx context.Context, c Constraint) (Descriptor, error) {
	candidates := r.Candidates(c)
	if len(candidates) == 0 {
		return Descriptor{}, fault.New(fault.NoCompatibleArtifact,
			"no toolkit artifact satisfies %s (known: %s)", c, r.known())
	}

	for _, a := range candidates {
		if err := ctx.Err(); err != nil {
			return Descriptor{}, fmt.Errorf("artifact resolution interrupted: %w", err)
		}

		dir, err := a.Materialize(ctx)
		if err != nil {
			r.logger.Warn("toolkit.artifact.materialize.failed", "Artifact unavailable, trying next candidate", map[string]interface{}{
				"version": a.Version.String(),
				"error":   err.Error(),
			})
			continue
		}

		return r.describe(ctx, a.Version, dir)
	}

	return Descriptor{}, fault.New(fault.NoCompatibleArtifact,
		"none of the %d toolkit artifacts satisfying %s could be materialized", len(candidates), c)
}

func (r *ArtifactResolver) describe(ctx context.Context, v version.Version, dir string) (Descriptor, error) {
	prober := FSProber{Naming: r.naming, Layout: LayoutArtifact}
	roots := []string{dir}

	paths, warnings, err := pathSet(prober, r.naming, roots, v, r.logger)
	if err != nil {
		return Descriptor{}, err
	}

	if r.querier != nil {
		reported, err := r.querier.QueryVersion(ctx, paths[Disassembler])
		if err != nil {
			return Descriptor{}, fault.Wrap(fault.MissingRequiredBinary, err, "artifact %s disassembler is not runnable", v)
		}
		if reported.MajorMinor() != v.MajorMinor() {
			return Descriptor{}, fault.New(fault.VersionMismatch,
				"artifact %s ships a disassembler reporting release %s", v, reported)
		}
	}

	r.logger.Info("toolkit.artifact.selected", "CUDA toolkit artifact selected", map[string]interface{}{
		"version": v.String(),
		"dir":     dir,
	})

	return Descriptor{
		Version:  v,
		Source:   SourceArtifact,
		Roots:    roots,
		Paths:    paths,
		Warnings: warnings,
	}, nil
}

func (r *ArtifactResolver) known() string {
	vs := make([]version.Version, len(r.artifacts))
	for i, a := range r.artifacts {
		vs[i] = a.Version
	}
	return version.NewSet(vs...).String()
}
