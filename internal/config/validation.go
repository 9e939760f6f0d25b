package config

import (
	"fmt"
	"net/url"
	"strings"

	"cudaconf/internal/version"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBackend()...)
	errors = append(errors, c.validateToolkit()...)
	errors = append(errors, c.validateArtifacts()...)
	errors = append(errors, c.validateStore()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateBackend() []ValidationError {
	if strings.TrimSpace(c.Backend.LLVMConfig) != "" {
		return nil
	}
	return []ValidationError{{
		Path:    "backend.llvm_config",
		Message: "must not be empty",
	}}
}

func (c *Config) validateToolkit() []ValidationError {
	var errors []ValidationError

	if c.Toolkit.Version != "" {
		if _, err := version.Parse(c.Toolkit.Version); err != nil {
			errors = append(errors, ValidationError{
				Path:    "toolkit.version",
				Message: fmt.Sprintf("must be a release number like 11.8, got '%s'", c.Toolkit.Version),
			})
		}
	}

	if _, err := version.Parse(c.Toolkit.Minimum); err != nil {
		errors = append(errors, ValidationError{
			Path:    "toolkit.minimum",
			Message: fmt.Sprintf("must be a release number like 10.1, got '%s'", c.Toolkit.Minimum),
		})
	}

	for i, root := range c.Toolkit.SearchRoots {
		if strings.TrimSpace(root) == "" {
			errors = append(errors, ValidationError{
				Path:    fmt.Sprintf("toolkit.search_roots[%d]", i),
				Message: "must not be empty",
			})
		}
	}

	return errors
}

func (c *Config) validateArtifacts() []ValidationError {
	var errors []ValidationError

	if c.Toolkit.ArtifactsEnabled() && strings.TrimSpace(c.Artifacts.CacheDir) == "" {
		errors = append(errors, ValidationError{
			Path:    "artifacts.cache_dir",
			Message: "must be set when artifacts are enabled",
		})
	}

	seen := make(map[version.Version]bool)
	for i, entry := range c.Artifacts.Catalogue {
		prefix := fmt.Sprintf("artifacts.catalogue[%d]", i)

		v, err := version.Parse(entry.Version)
		if err != nil {
			errors = append(errors, ValidationError{
				Path:    prefix + ".version",
				Message: fmt.Sprintf("invalid release number '%s'", entry.Version),
			})
		} else if seen[v.MajorMinor()] {
			errors = append(errors, ValidationError{
				Path:    prefix + ".version",
				Message: fmt.Sprintf("duplicate release %s", v.MajorMinor()),
			})
		} else {
			seen[v.MajorMinor()] = true
		}

		if u, err := url.Parse(entry.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file") {
			errors = append(errors, ValidationError{
				Path:    prefix + ".url",
				Message: fmt.Sprintf("must be an http(s) or file URL, got '%s'", entry.URL),
			})
		}

		if entry.SHA256 != "" && !isHexDigest(entry.SHA256, 64) {
			errors = append(errors, ValidationError{
				Path:    prefix + ".sha256",
				Message: "must be 64 hexadecimal characters",
			})
		}
	}

	return errors
}

func (c *Config) validateStore() []ValidationError {
	if strings.TrimSpace(c.Store.Path) != "" {
		return nil
	}
	return []ValidationError{{
		Path:    "store.path",
		Message: "must not be empty",
	}}
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, c.Logging.Format) {
		errors = append(errors, ValidationError{
			Path:    "logging.format",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validFormats, c.Logging.Format),
		})
	}

	return errors
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func isHexDigest(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
