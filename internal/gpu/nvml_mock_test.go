//go:build cuda

package gpu

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// MockNVML is a mock implementation of NVMLInterface for testing
type MockNVML struct {
	InitReturn          nvml.Return
	ShutdownReturn      nvml.Return
	DeviceCount         int
	DeviceCountReturn   nvml.Return
	DriverVersion       string
	DriverVersionReturn nvml.Return
	CudaVersion         int
	CudaVersionReturn   nvml.Return
	shutdownCalls       int
}

// NewMockNVML creates a new mock NVML instance
func NewMockNVML() *MockNVML {
	return &MockNVML{
		InitReturn:          nvml.SUCCESS,
		ShutdownReturn:      nvml.SUCCESS,
		DeviceCountReturn:   nvml.SUCCESS,
		DriverVersionReturn: nvml.SUCCESS,
		CudaVersionReturn:   nvml.SUCCESS,
	}
}

// Init mocks NVML initialization
func (m *MockNVML) Init() nvml.Return {
	return m.InitReturn
}

// Shutdown mocks NVML shutdown
func (m *MockNVML) Shutdown() nvml.Return {
	m.shutdownCalls++
	return m.ShutdownReturn
}

// DeviceGetCount mocks getting device count
func (m *MockNVML) DeviceGetCount() (int, nvml.Return) {
	return m.DeviceCount, m.DeviceCountReturn
}

// SystemGetDriverVersion mocks getting driver version
func (m *MockNVML) SystemGetDriverVersion() (string, nvml.Return) {
	return m.DriverVersion, m.DriverVersionReturn
}

// SystemGetCudaDriverVersion mocks getting CUDA version
func (m *MockNVML) SystemGetCudaDriverVersion() (int, nvml.Return) {
	return m.CudaVersion, m.CudaVersionReturn
}
