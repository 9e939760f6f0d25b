package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cudaconf/internal/fsutil"
	"cudaconf/internal/logging"
	"cudaconf/internal/storelock"
)

// Outcome reports what ResolveAndCommit did to the persisted file.
type Outcome int

const (
	// OutcomeWritten means a new configuration was written.
	OutcomeWritten Outcome = iota
	// OutcomeUnchanged means the previous file was restored untouched.
	OutcomeUnchanged
)

func (o Outcome) String() string {
	if o == OutcomeUnchanged {
		return "unchanged"
	}
	return "written"
}

// ResolveFunc runs the resolution pipeline.
type ResolveFunc func(ctx context.Context) (Configuration, error)

// Store owns the persisted configuration file and its backup.
type Store struct {
	path   string
	lock   *storelock.Manager
	holder storelock.Holder
	logger *logging.Logger
}

// New creates a store for the file at path. The lease file lives in the
// same directory.
func New(path string, logger *logging.Logger) *Store {
	return &Store{
		path:   path,
		lock:   storelock.NewManager(filepath.Dir(path), logger),
		holder: storelock.CurrentProcess(),
		logger: logger,
	}
}

// Path returns the configuration file path.
func (s *Store) Path() string { return s.path }

// BackupPath returns where the previous configuration is kept during a run.
func (s *Store) BackupPath() string { return s.path + ".bak" }

// Lock returns the lease manager.
func (s *Store) Lock() *storelock.Manager { return s.lock }

// Load reads the persisted configuration.
func (s *Store) Load() (Configuration, bool, error) {
	return Load(s.path)
}

// ResolveAndCommit backs up the current file, writes the provisional
// marker, runs resolve and commits the result. When the result matches
// the backup, the backup is moved back so the file keeps its timestamp.
// A failed resolve leaves the marker in place.
func (s *Store) ResolveAndCommit(ctx context.Context, resolve ResolveFunc) (Outcome, Configuration, error) {
	if err := fsutil.EnsureStateDirectory(filepath.Dir(s.path)); err != nil {
		return OutcomeWritten, Configuration{}, err
	}

	if err := s.lock.Acquire(s.holder); err != nil {
		return OutcomeWritten, Configuration{}, err
	}
	defer func() {
		if err := s.lock.Release(s.holder); err != nil {
			s.logger.Warn("store.lock.release_failed", "Failed to release store lease", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	hasBackup, err := s.backup()
	if err != nil {
		return OutcomeWritten, Configuration{}, err
	}

	if err := Save(Provisional(), s.path, s.logger); err != nil {
		return OutcomeWritten, Configuration{}, fmt.Errorf("failed to write provisional marker: %w", err)
	}

	cfg, err := resolve(ctx)
	if err != nil {
		s.logger.Error("store.resolve.failed", "Resolution failed, toolchain marked unavailable", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return OutcomeWritten, Configuration{}, err
	}
	cfg.Schema = SchemaVersion
	cfg.Resolved = true

	if hasBackup {
		prev, ok, err := Load(s.BackupPath())
		if err == nil && ok && prev.Equal(cfg) {
			if err := os.Rename(s.BackupPath(), s.path); err != nil {
				return OutcomeWritten, Configuration{}, fmt.Errorf("failed to restore configuration: %w", err)
			}
			s.logger.Info("store.commit.unchanged", "Configuration unchanged", map[string]interface{}{
				"path": s.path,
			})
			return OutcomeUnchanged, prev, nil
		}
	}

	if err := Save(cfg, s.path, s.logger); err != nil {
		return OutcomeWritten, Configuration{}, err
	}
	if hasBackup {
		if err := os.Remove(s.BackupPath()); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("store.backup.cleanup_failed", "Failed to remove configuration backup", map[string]interface{}{
				"path":  s.BackupPath(),
				"error": err.Error(),
			})
		}
	}

	s.logger.Info("store.commit.written", "Configuration written", map[string]interface{}{
		"path": s.path,
	})
	return OutcomeWritten, cfg, nil
}

// backup moves the current file aside. If the current file is a leftover
// marker from an interrupted run and an older backup exists, that backup is
// kept instead.
func (s *Store) backup() (bool, error) {
	hasBackup := fsutil.FileExists(s.BackupPath())

	if !fsutil.FileExists(s.path) {
		return hasBackup, nil
	}

	current, _, err := Load(s.path)
	if err == nil && !current.Available() && hasBackup {
		s.logger.Warn("store.backup.recovered", "Previous run was interrupted, keeping its backup", map[string]interface{}{
			"backup": s.BackupPath(),
		})
		return true, nil
	}

	if err := os.Rename(s.path, s.BackupPath()); err != nil {
		return false, fmt.Errorf("failed to back up configuration: %w", err)
	}
	return true, nil
}
