// Package gpu reports the CUDA release supported by the installed driver.
package gpu

import "cudaconf/internal/version"

// DriverInfo describes the installed NVIDIA driver.
type DriverInfo struct {
	// CUDA is the newest CUDA release the driver can run.
	CUDA          version.Version `json:"cuda_version"`
	DriverVersion string          `json:"driver_version"`
	Devices       int             `json:"devices"`
	// Source is "nvml" or "nvidia-smi".
	Source string `json:"source"`
}

// cudaFromDriverInt decodes the NVML encoding 1000*major + 10*minor.
func cudaFromDriverInt(v int) version.Version {
	return version.New(v/1000, (v%1000)/10)
}
