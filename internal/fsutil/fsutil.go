package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"cudaconf/internal/logging"
)

const (
	// DefaultStateDir is the default location for cudaconf state files
	DefaultStateDir = "/var/lib/cudaconf"
	// StateDirEnv overrides DefaultStateDir
	StateDirEnv = "CUDACONF_STATE_DIR"
	// DefaultStatePermissions is the default permission for state directories
	DefaultStatePermissions = 0o750
	// DefaultFilePermissions is the default permission for state files
	DefaultFilePermissions = 0o600
)

// GetStateDir returns the state directory from environment or uses the provided default.
// It returns an absolute path when possible.
func GetStateDir(defaultDir string) string {
	if env := os.Getenv(StateDirEnv); env != "" {
		if abs, err := filepath.Abs(env); err == nil {
			return abs
		}
		return env
	}
	return defaultDir
}

// EnsureStateDirectory creates the state directory if it doesn't exist.
func EnsureStateDirectory(path string) error {
	if err := os.MkdirAll(path, DefaultStatePermissions); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return nil
}

// AtomicWriteFile writes data to a temp file in the same directory, syncs it
// and renames it over path, so readers see either the old or the new content.
func AtomicWriteFile(path string, data []byte, perm os.FileMode, logger *logging.Logger) error {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(filepath.Clean(tmpPath), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		CloseWithError(f.Close, logger, tmpPath)
		removeTemp(tmpPath, logger)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		CloseWithError(f.Close, logger, tmpPath)
		removeTemp(tmpPath, logger)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		removeTemp(tmpPath, logger)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		removeTemp(tmpPath, logger)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

func removeTemp(tmpPath string, logger *logging.Logger) {
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("fs.cleanup_failed", "Failed to remove temp file", map[string]interface{}{
			"path":  tmpPath,
			"error": err.Error(),
		})
	}
}

// FileExists reports whether path is an existing regular file (symlinks followed).
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CloseWithError closes a resource and logs any error if a logger is provided.
func CloseWithError(closer func() error, logger *logging.Logger, resource string) {
	if err := closer(); err != nil {
		logger.Warn("fs.close_failed", fmt.Sprintf("Failed to close %s", resource), map[string]interface{}{
			"error": err.Error(),
		})
	}
}
