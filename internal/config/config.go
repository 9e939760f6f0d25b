package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"cudaconf/internal/configdir"
)

const (
	systemConfigFile = "config.yaml"
	userConfigDir    = ".cudaconf"
	userConfigFile   = "config.yaml"

	// EnvToolkitVersion pins the artifact version to an exact release.
	EnvToolkitVersion = "CUDACONF_TOOLKIT_VERSION"
	// EnvUseArtifacts disables artifact use when set to a false value.
	EnvUseArtifacts = "CUDACONF_USE_ARTIFACTS"
)

// Load loads and merges configuration from system and user files, then
// applies environment overrides.
// Priority: defaults < system config < user config < environment
func Load() (Config, error) {
	cfg := DefaultConfig()

	systemPath := SystemConfigPath()
	if err := mergeConfigFile(&cfg, systemPath); err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to load system config: %w", err)
		}
	}

	if userPath := UserConfigPath(); userPath != "" {
		if err := mergeConfigFile(&cfg, userPath); err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to load user config: %w", err)
			}
		}
	}

	return finish(cfg)
}

// LoadFrom loads configuration from a specific file path
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeConfigFile(&cfg, path); err != nil {
		return cfg, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, fmt.Errorf("config.validation.error: %v", formatValidationErrors(validationErrors))
	}

	return cfg, nil
}

// ApplyEnv overlays the environment overrides onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if pin := strings.TrimSpace(getenv(EnvToolkitVersion)); pin != "" {
		cfg.Toolkit.Version = pin
	}

	if raw := strings.TrimSpace(getenv(EnvUseArtifacts)); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", EnvUseArtifacts, raw, err)
		}
		cfg.Toolkit.UseArtifacts = &enabled
	}

	return nil
}

// mergeConfigFile reads a YAML file and merges it into the existing config
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- path is constructed from trusted sources
	if err != nil {
		return err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	mergeConfig(cfg, &overlay)

	return nil
}

// mergeConfig merges non-zero values from src into dst
func mergeConfig(dst, src *Config) {
	if src.Backend.LLVMConfig != "" {
		dst.Backend.LLVMConfig = src.Backend.LLVMConfig
	}

	if src.Toolkit.UseArtifacts != nil {
		enabled := *src.Toolkit.UseArtifacts
		dst.Toolkit.UseArtifacts = &enabled
	}
	if src.Toolkit.Version != "" {
		dst.Toolkit.Version = src.Toolkit.Version
	}
	if src.Toolkit.Minimum != "" {
		dst.Toolkit.Minimum = src.Toolkit.Minimum
	}
	if len(src.Toolkit.SearchRoots) > 0 {
		dst.Toolkit.SearchRoots = append([]string(nil), src.Toolkit.SearchRoots...)
	}

	if src.Artifacts.CacheDir != "" {
		dst.Artifacts.CacheDir = src.Artifacts.CacheDir
	}
	// Catalogues are replaced, not merged.
	if len(src.Artifacts.Catalogue) > 0 {
		dst.Artifacts.Catalogue = append([]ArtifactEntry(nil), src.Artifacts.Catalogue...)
	}

	if src.Store.Path != "" {
		dst.Store.Path = src.Store.Path
	}

	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	if len(errors) == 1 {
		return errors[0].Error()
	}
	result := fmt.Sprintf("%d validation errors:\n", len(errors))
	for _, err := range errors {
		result += "  - " + err.Error() + "\n"
	}
	return result
}

// SystemConfigPath returns the path to the system configuration file
func SystemConfigPath() string {
	return filepath.Join(configdir.ConfigDir(), systemConfigFile)
}

// UserConfigPath returns the path to the user configuration file
func UserConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, userConfigDir, userConfigFile)
}
