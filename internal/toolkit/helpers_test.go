package toolkit

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"cudaconf/internal/logging"
	"cudaconf/internal/version"
)

var linux = Naming{GOOS: "linux"}

func testLogger(buf *bytes.Buffer) *logging.Logger {
	return logging.NewLoggerWithWriter(logging.LevelDebug, logging.FormatJSON, buf)
}

func requirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolkit trees rely on POSIX permission bits")
	}
}

// tree describes which files a fake toolkit installation contains.
type tree struct {
	layout  Layout
	version string
	omit    map[Component]bool
}

// build writes the fake installation under root.
func (tr tree) build(t *testing.T, root string) {
	t.Helper()

	v := version.MustParse(tr.version)
	files := map[Component]string{
		Disassembler:  filepath.Join("bin", "cuobjdump"),
		CUPTI:         filepath.Join("extras", "CUPTI", "lib64", "libcupti.so."+v.MajorMinor().String()),
		NVTX:          filepath.Join("lib64", "libnvToolsExt.so.1"),
		StaticDevRT:   filepath.Join("lib64", "libcudadevrt.a"),
		DeviceBitcode: filepath.Join(linux.BitcodeDir(tr.layout), "libdevice.10.bc"),
	}

	for c, rel := range files {
		if tr.omit[c] {
			continue
		}
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("release "+tr.version), 0o755); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// fileQuerier reads the release from the fake binary's contents.
type fileQuerier struct{}

func (fileQuerier) QueryVersion(_ context.Context, path string) (version.Version, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return version.Version{}, err
	}
	return ParseRelease(string(data))
}

type failingQuerier struct{}

func (failingQuerier) QueryVersion(context.Context, string) (version.Version, error) {
	return version.Version{}, errors.New("exec format error")
}
