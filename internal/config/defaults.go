package config

import (
	"path/filepath"

	"cudaconf/internal/fsutil"
)

// DefaultMinimumToolkit is the oldest toolkit release resolved without a warning.
const DefaultMinimumToolkit = "10.1"

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	stateDir := fsutil.GetStateDir(fsutil.DefaultStateDir)
	enabled := true

	return Config{
		Backend: BackendConfig{
			LLVMConfig: "llvm-config",
		},
		Toolkit: ToolkitConfig{
			UseArtifacts: &enabled,
			Minimum:      DefaultMinimumToolkit,
		},
		Artifacts: ArtifactsConfig{
			CacheDir: filepath.Join(stateDir, "artifacts"),
		},
		Store: StoreConfig{
			Path: filepath.Join(stateDir, "toolchain.conf"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
