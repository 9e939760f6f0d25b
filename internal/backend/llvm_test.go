package backend

import (
	"bytes"
	"context"
	"reflect"
	"testing"

	"cudaconf/internal/execx"
	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(logging.LevelDebug, logging.FormatJSON, &bytes.Buffer{})
}

func TestProbe_Detect(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"release", "15.0.7\n", "15.0.7"},
		{"git suffix", "17.0.0git\n", "17.0"},
		{"rc suffix", "14.0.0-rc1", "14.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := execx.Static(map[string]string{
				"llvm-config --version":       tt.version,
				"llvm-config --targets-built": "AArch64 NVPTX X86\n",
			})

			info, err := NewProbe("llvm-config", run, testLogger()).Detect(context.Background())
			if err != nil {
				t.Fatalf("Detect() error = %v", err)
			}
			if info.Version.String() != tt.want {
				t.Errorf("Version = %s, want %s", info.Version, tt.want)
			}
			if !reflect.DeepEqual(info.Targets, []string{"AArch64", "NVPTX", "X86"}) {
				t.Errorf("Targets = %v", info.Targets)
			}
		})
	}
}

func TestProbe_Detect_Missing(t *testing.T) {
	_, err := NewProbe("llvm-config-15", execx.Static(nil), testLogger()).Detect(context.Background())
	if !fault.Is(err, fault.MissingDependency) {
		t.Errorf("Detect() error = %v, want MissingDependency", err)
	}
}

func TestProbe_Detect_Garbage(t *testing.T) {
	run := execx.Static(map[string]string{"llvm-config --version": "unknown"})
	_, err := NewProbe("llvm-config", run, testLogger()).Detect(context.Background())
	if !fault.Is(err, fault.MissingDependency) {
		t.Errorf("Detect() error = %v, want MissingDependency", err)
	}
}
