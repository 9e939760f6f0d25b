package toolkit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"cudaconf/internal/fault"
	"cudaconf/internal/fsutil"
	"cudaconf/internal/logging"
	"cudaconf/internal/version"
)

// RootEnvVars are consulted in order before any other location.
var RootEnvVars = []string{"CUDA_HOME", "CUDA_PATH", "CUDA_ROOT", "CUDA_TOOLKIT_ROOT_DIR"}

// conventionalRoots are the platform install locations, before the
// versioned /usr/local/cuda-X.Y directories.
var conventionalRoots = []string{"/usr/local/cuda", "/opt/cuda"}

// Scanner finds a locally installed toolkit.
type Scanner struct {
	logger      *logging.Logger
	prober      Prober
	querier     VersionQuerier
	naming      Naming
	searchRoots []string

	// Overridable for tests.
	Getenv       func(string) string
	LookPath     func(string) (string, error)
	Glob         func(string) ([]string, error)
	Conventional []string
}

// NewScanner creates a local toolkit scanner. searchRoots are configured
// locations tried after the environment overrides.
func NewScanner(logger *logging.Logger, prober Prober, querier VersionQuerier, naming Naming, searchRoots []string) *Scanner {
	return &Scanner{
		logger:       logger,
		prober:       prober,
		querier:      querier,
		naming:       naming,
		searchRoots:  searchRoots,
		Getenv:       os.Getenv,
		LookPath:     exec.LookPath,
		Glob:         filepath.Glob,
		Conventional: conventionalRoots,
	}
}

// Roots returns the existing candidate installation roots in priority order.
func (s *Scanner) Roots() []string {
	var candidates []string

	for _, name := range RootEnvVars {
		if v := strings.TrimSpace(s.Getenv(name)); v != "" {
			candidates = append(candidates, v)
		}
	}

	candidates = append(candidates, s.searchRoots...)

	for _, tool := range []string{"ptxas", "nvcc"} {
		path, err := s.LookPath(s.naming.Binary(tool))
		if err != nil {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		candidates = append(candidates, filepath.Dir(filepath.Dir(path)))
	}

	candidates = append(candidates, s.Conventional...)
	candidates = append(candidates, s.versionedRoots()...)

	seen := make(map[string]bool, len(candidates))
	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = filepath.Clean(c)
		if seen[c] || !fsutil.DirExists(c) {
			continue
		}
		seen[c] = true
		roots = append(roots, c)
	}
	return roots
}

// versionedRoots returns /usr/local/cuda-X.Y directories, newest first.
func (s *Scanner) versionedRoots() []string {
	matches, err := s.Glob("/usr/local/cuda-*")
	if err != nil {
		return nil
	}

	type versioned struct {
		path string
		v    version.Version
	}
	var found []versioned
	for _, m := range matches {
		v, err := version.Parse(strings.TrimPrefix(filepath.Base(m), "cuda-"))
		if err != nil {
			continue
		}
		found = append(found, versioned{path: m, v: v})
	}
	sort.Slice(found, func(i, j int) bool { return found[j].v.Less(found[i].v) })

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.path
	}
	return out
}

// Scan picks the first root holding a disassembler and derives the
// toolkit from it. Components are only taken from that root, so every path
// belongs to the same release.
func (s *Scanner) Scan(ctx context.Context) (Descriptor, error) {
	roots := s.Roots()
	s.logger.Debug("toolkit.local.roots", "Local toolkit roots", map[string]interface{}{
		"roots": roots,
	})

	var root, disassembler string
	for _, r := range roots {
		if path, ok := s.prober.FindBinary(disassemblerName, []string{r}); ok {
			root, disassembler = r, path
			break
		}
	}
	if disassembler == "" {
		return Descriptor{}, fault.New(fault.MissingRequiredBinary,
			"%s not found in any CUDA installation (searched %v); set CUDA_HOME", disassemblerName, roots)
	}

	v, err := s.querier.QueryVersion(ctx, disassembler)
	if err != nil {
		return Descriptor{}, fault.Wrap(fault.MissingRequiredBinary, err, "cannot determine toolkit release from %s", disassembler)
	}

	paths, warnings, err := pathSet(s.prober, s.naming, []string{root}, v, s.logger)
	if err != nil {
		return Descriptor{}, err
	}

	s.logger.Info("toolkit.local.found", "Local CUDA toolkit found", map[string]interface{}{
		"version": v.String(),
		"root":    root,
	})

	return Descriptor{
		Version:  v,
		Source:   SourceLocal,
		Roots:    []string{root},
		Paths:    paths,
		Warnings: warnings,
	}, nil
}
