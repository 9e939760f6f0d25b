package fsutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cudaconf/internal/logging"
)

func TestGetStateDir(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultDir string
		wantEnv    bool
	}{
		{
			name:       "uses environment variable",
			envValue:   "/custom/state",
			defaultDir: "/default/state",
			wantEnv:    true,
		},
		{
			name:       "uses default when env not set",
			envValue:   "",
			defaultDir: "/default/state",
			wantEnv:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(StateDirEnv, tt.envValue)

			got := GetStateDir(tt.defaultDir)

			if tt.wantEnv && got != tt.envValue {
				t.Errorf("GetStateDir() = %v, want env value %v", got, tt.envValue)
			}
			if !tt.wantEnv && got != tt.defaultDir {
				t.Errorf("GetStateDir() = %v, want %v", got, tt.defaultDir)
			}
		})
	}
}

func TestEnsureStateDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureStateDirectory(path); err != nil {
		t.Fatalf("EnsureStateDirectory() error = %v", err)
	}
	if !DirExists(path) {
		t.Errorf("directory not created: %s", path)
	}

	// Second call on an existing directory is a no-op.
	if err := EnsureStateDirectory(path); err != nil {
		t.Errorf("EnsureStateDirectory() on existing dir error = %v", err)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	logger := logging.NewLoggerWithWriter(logging.LevelWarn, logging.FormatJSON, &bytes.Buffer{})

	tests := []struct {
		name  string
		setup func(t *testing.T) (string, []byte)
	}{
		{
			name: "writes new file atomically",
			setup: func(t *testing.T) (string, []byte) {
				t.Helper()
				return filepath.Join(t.TempDir(), "toolchain.conf"), []byte("resolved = false\n")
			},
		},
		{
			name: "overwrites existing file",
			setup: func(t *testing.T) (string, []byte) {
				t.Helper()
				path := filepath.Join(t.TempDir(), "existing.conf")
				if err := os.WriteFile(path, []byte("old content"), 0o600); err != nil {
					t.Fatalf("setup failed: %v", err)
				}
				return path, []byte("new content")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, data := tt.setup(t)

			if err := AtomicWriteFile(path, data, DefaultFilePermissions, logger); err != nil {
				t.Fatalf("AtomicWriteFile() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("failed to read file: %v", err)
			}
			if string(got) != string(data) {
				t.Errorf("file content = %q, want %q", got, data)
			}

			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temp file still exists: %s.tmp", path)
			}
		})
	}
}

func TestAtomicWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "toolchain.conf")
	if err := AtomicWriteFile(path, []byte("x"), DefaultFilePermissions, nil); err == nil {
		t.Error("AtomicWriteFile() into a missing directory should fail")
	}
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cuobjdump")
	if err := os.WriteFile(file, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if !FileExists(file) {
		t.Error("FileExists() = false for a regular file")
	}
	if FileExists(dir) {
		t.Error("FileExists() = true for a directory")
	}
	if !DirExists(dir) || DirExists(file) {
		t.Error("DirExists() mismatch")
	}
	if FileExists(filepath.Join(dir, "nope")) {
		t.Error("FileExists() = true for a missing path")
	}
}

func TestCloseWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLoggerWithWriter(logging.LevelWarn, logging.FormatJSON, &buf)

	CloseWithError(func() error { return nil }, logger, "ok_resource")
	CloseWithError(func() error { return os.ErrClosed }, logger, "bad_resource")
	CloseWithError(func() error { return os.ErrClosed }, nil, "unlogged_resource")

	if strings.Contains(buf.String(), "ok_resource") {
		t.Error("successful close should not log")
	}
	if !strings.Contains(buf.String(), "bad_resource") {
		t.Error("failed close should log a warning")
	}
}
