package toolchain

import (
	"context"
	"fmt"

	"cudaconf/internal/backend"
	"cudaconf/internal/config"
	"cudaconf/internal/fetch"
	"cudaconf/internal/gpu"
	"cudaconf/internal/logging"
	"cudaconf/internal/toolkit"
	"cudaconf/internal/version"
)

// Materializer fetches one artifact source into a local directory.
type Materializer interface {
	Materialize(ctx context.Context, src fetch.Source) (string, error)
}

// Artifacts turns catalogue entries into artifacts backed by m.
func Artifacts(m Materializer, catalogue []config.ArtifactEntry) ([]toolkit.Artifact, error) {
	out := make([]toolkit.Artifact, 0, len(catalogue))
	for _, entry := range catalogue {
		v, err := version.Parse(entry.Version)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: %w", entry.URL, err)
		}
		src := fetch.Source{Version: v, URL: entry.URL, SHA256: entry.SHA256}
		out = append(out, toolkit.Artifact{
			Version: v,
			Materialize: func(ctx context.Context) (string, error) {
				return m.Materialize(ctx, src)
			},
		})
	}
	return out, nil
}

// OptionsFromConfig extracts the selection options from settings.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	opts := Options{UseArtifacts: cfg.Toolkit.ArtifactsEnabled()}

	if cfg.Toolkit.Version != "" {
		pin, err := version.Parse(cfg.Toolkit.Version)
		if err != nil {
			return Options{}, fmt.Errorf("toolkit.version: %w", err)
		}
		opts.Pin = pin
	}
	if cfg.Toolkit.Minimum != "" {
		minimum, err := version.Parse(cfg.Toolkit.Minimum)
		if err != nil {
			return Options{}, fmt.Errorf("toolkit.minimum: %w", err)
		}
		opts.Minimum = minimum
	}
	return opts, nil
}

// FromConfig wires a pipeline against the host system.
func FromConfig(cfg config.Config, logger *logging.Logger) (*Pipeline, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	artifacts, err := Artifacts(fetch.New(cfg.Artifacts.CacheDir, logger), cfg.Artifacts.Catalogue)
	if err != nil {
		return nil, err
	}

	naming := toolkit.HostNaming()
	querier := toolkit.NewExecQuerier(nil)

	deps := Deps{
		Backend:   backend.NewProbe(cfg.Backend.LLVMConfig, nil, logger),
		Driver:    gpu.NewDetector(logger),
		Artifacts: toolkit.NewArtifactResolver(logger, artifacts, naming, querier),
		Local: toolkit.NewScanner(logger,
			toolkit.FSProber{Naming: naming, Layout: toolkit.LayoutLocal},
			querier, naming, cfg.Toolkit.SearchRoots),
	}

	return New(deps, opts, logger), nil
}
