package config

// Config represents the complete cudaconf settings
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Toolkit   ToolkitConfig   `yaml:"toolkit"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig locates the compiler backend
type BackendConfig struct {
	LLVMConfig string `yaml:"llvm_config"`
}

// ToolkitConfig controls toolkit selection
type ToolkitConfig struct {
	// UseArtifacts is a pointer so an explicit "false" in a user file can
	// override a system-level "true".
	UseArtifacts *bool    `yaml:"use_artifacts"`
	Version      string   `yaml:"version"`
	Minimum      string   `yaml:"minimum"`
	SearchRoots  []string `yaml:"search_roots"`
}

// ArtifactsConfig describes the downloadable toolkit bundles
type ArtifactsConfig struct {
	CacheDir  string          `yaml:"cache_dir"`
	Catalogue []ArtifactEntry `yaml:"catalogue"`
}

// ArtifactEntry is one downloadable toolkit release
type ArtifactEntry struct {
	Version string `yaml:"version"`
	URL     string `yaml:"url"`
	SHA256  string `yaml:"sha256"`
}

// StoreConfig locates the persisted toolchain configuration
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ArtifactsEnabled reports the effective use_artifacts setting (default true).
func (t ToolkitConfig) ArtifactsEnabled() bool {
	return t.UseArtifacts == nil || *t.UseArtifacts
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
