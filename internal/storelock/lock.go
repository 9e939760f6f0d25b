// Package storelock serializes configuration passes across processes with a
// lease file next to the persisted configuration.
package storelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"cudaconf/internal/fsutil"
	"cudaconf/internal/logging"
)

const (
	// LockFileName is the name of the store lock file
	LockFileName = "toolchain.lock"

	// DefaultLeaseTimeout is the default lease timeout duration
	// After this duration, a stale lock can be considered expired
	DefaultLeaseTimeout = 5 * time.Minute
)

// ErrHeld is returned when another live process holds the lease.
var ErrHeld = errors.New("store lease is held by another process")

// Manager manages lease acquisition and release
type Manager struct {
	lockPath     string
	logger       *logging.Logger
	leaseTimeout time.Duration
	now          func() time.Time
}

// NewManager creates a lease manager for the lock file in stateDir
func NewManager(stateDir string, logger *logging.Logger) *Manager {
	return &Manager{
		lockPath:     filepath.Join(stateDir, LockFileName),
		logger:       logger,
		leaseTimeout: DefaultLeaseTimeout,
		now:          time.Now,
	}
}

// Path returns the lock file path
func (m *Manager) Path() string {
	return m.lockPath
}

// Acquire takes the lease for holder. A stale lease left by a crashed
// process is cleared first.
func (m *Manager) Acquire(holder Holder) error {
	if !holder.IsValid() {
		return fmt.Errorf("invalid holder: %q", holder)
	}

	for attempt := 0; attempt < 2; attempt++ {
		lease := &LockInfo{Holder: holder, Token: uuid.NewString(), SinceTS: m.now().UTC()}
		err := m.create(lease)
		if err == nil {
			m.logger.Info("store.lock.acquired", "Store lease acquired", map[string]interface{}{
				"holder": holder.String(),
				"token":  lease.Token,
			})
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to save lock: %w", err)
		}

		existing, err := m.loadLock()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("failed to read existing lock: %w", err)
		}

		if existing.Holder == holder {
			m.logger.Info("store.lock.already_held", "Store lease already held by this process", map[string]interface{}{
				"holder": holder.String(),
			})
			return nil
		}

		age := m.now().Sub(existing.SinceTS)
		if age <= m.leaseTimeout {
			return fmt.Errorf("%w: %s (acquired %s ago)", ErrHeld, existing.Holder, age.Round(time.Second))
		}

		m.logger.Warn("store.lock.stale_detected", "Stale store lease detected", map[string]interface{}{
			"current_holder": existing.Holder.String(),
			"age_seconds":    age.Seconds(),
		})
		if err := m.forceUnlock(); err != nil {
			return fmt.Errorf("failed to clear stale lock: %w", err)
		}
	}

	return fmt.Errorf("%w: lease changed hands during acquisition", ErrHeld)
}

// Release releases the lease for the given holder
// Only the current holder can release the lock
func (m *Manager) Release(holder Holder) error {
	existing, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Debug("store.lock.release.no_lock", "No store lease to release", map[string]interface{}{
				"holder": holder.String(),
			})
			return nil
		}
		return fmt.Errorf("failed to read existing lock: %w", err)
	}

	if existing.Holder != holder {
		return fmt.Errorf("cannot release lock: held by %s, not %s",
			existing.Holder.String(), holder.String())
	}

	if err := m.forceUnlock(); err != nil {
		return err
	}

	m.logger.Debug("store.lock.released", "Store lease released", map[string]interface{}{
		"holder": holder.String(),
	})
	return nil
}

// ForceUnlock forcibly removes the lease regardless of holder
// This should only be used for recovery scenarios
func (m *Manager) ForceUnlock() error {
	existing, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			m.logger.Info("store.lock.force_unlock.no_lock", "No store lease to force unlock", nil)
			return nil
		}
		// An unreadable lock file is removed as well.
		m.logger.Warn("store.lock.corrupt", "Removing unreadable store lease", map[string]interface{}{
			"error": err.Error(),
		})
		return m.forceUnlock()
	}

	m.logger.Warn("store.lock.stolen", "Store lease forcibly removed", map[string]interface{}{
		"previous_holder": existing.Holder.String(),
		"token":           existing.Token,
		"age_seconds":     m.now().Sub(existing.SinceTS).Seconds(),
	})

	return m.forceUnlock()
}

// GetStatus returns the current lock status
func (m *Manager) GetStatus() (*LockInfo, error) {
	lock, err := m.loadLock()
	if err != nil {
		if os.IsNotExist(err) {
			return &LockInfo{Holder: HolderNone}, nil
		}
		return nil, fmt.Errorf("failed to read lock: %w", err)
	}
	return lock, nil
}

func (m *Manager) forceUnlock() error {
	if err := os.Remove(m.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (m *Manager) loadLock() (*LockInfo, error) {
	data, err := os.ReadFile(filepath.Clean(m.lockPath))
	if err != nil {
		return nil, err
	}

	var lock LockInfo
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	return &lock, nil
}

// create writes the lock file only if none exists.
func (m *Manager) create(lock *LockInfo) error {
	if err := fsutil.EnsureStateDirectory(filepath.Dir(m.lockPath)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	f, err := os.OpenFile(m.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		fsutil.CloseWithError(f.Close, m.logger, m.lockPath)
		_ = os.Remove(m.lockPath)
		return err
	}
	return f.Close()
}
