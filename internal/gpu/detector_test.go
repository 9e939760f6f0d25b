//go:build cuda

package gpu

import (
	"bytes"
	"context"
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"cudaconf/internal/execx"
	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
)

const (
	mockDriverVersion = "535.104.05"
)

func TestDetector_Detect_NVML(t *testing.T) {
	logger := logging.NewLoggerWithWriter(logging.LevelInfo, logging.FormatJSON, &bytes.Buffer{})

	mockNVML := NewMockNVML()
	mockNVML.DriverVersion = mockDriverVersion
	mockNVML.CudaVersion = 12020 // CUDA 12.2
	mockNVML.DeviceCount = 2

	detector := NewDetectorWithNVML(mockNVML, execx.Static(nil), logger)
	info, err := detector.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	if info.CUDA.String() != "12.2" {
		t.Errorf("Expected CUDA 12.2, got: %s", info.CUDA)
	}
	if info.DriverVersion != mockDriverVersion {
		t.Errorf("Expected driver version %s, got: %s", mockDriverVersion, info.DriverVersion)
	}
	if info.Devices != 2 || info.Source != "nvml" {
		t.Errorf("unexpected info: %+v", info)
	}
	if mockNVML.shutdownCalls != 1 {
		t.Errorf("Shutdown called %d times, want 1", mockNVML.shutdownCalls)
	}
}

func TestDetector_Detect_FallsBackToSMI(t *testing.T) {
	logger := logging.NewLoggerWithWriter(logging.LevelInfo, logging.FormatJSON, &bytes.Buffer{})

	mockNVML := NewMockNVML()
	mockNVML.InitReturn = nvml.ERROR_LIBRARY_NOT_FOUND

	run := execx.Static(map[string]string{"nvidia-smi": smiBanner})
	info, err := NewDetectorWithNVML(mockNVML, run, logger).Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if info.CUDA.String() != "12.2" || info.Source != "nvidia-smi" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestDetector_Detect_CudaVersionFailure(t *testing.T) {
	logger := logging.NewLoggerWithWriter(logging.LevelInfo, logging.FormatJSON, &bytes.Buffer{})

	mockNVML := NewMockNVML()
	mockNVML.CudaVersionReturn = nvml.ERROR_NOT_SUPPORTED

	_, err := NewDetectorWithNVML(mockNVML, execx.Static(nil), logger).Detect(context.Background())
	if !fault.Is(err, fault.MissingDependency) {
		t.Errorf("Detect() error = %v, want MissingDependency", err)
	}
}
