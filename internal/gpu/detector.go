//go:build cuda

package gpu

import (
	"context"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"cudaconf/internal/execx"
	"cudaconf/internal/logging"
)

// Detector reports the driver through NVML, falling back to nvidia-smi.
type Detector struct {
	nvml   NVMLInterface
	run    execx.Runner
	logger *logging.Logger
}

// NewDetector creates a new driver detector
func NewDetector(logger *logging.Logger) *Detector {
	return NewDetectorWithNVML(NewRealNVML(), execx.Run, logger)
}

// NewDetectorWithRunner creates a detector with a custom command runner.
func NewDetectorWithRunner(run execx.Runner, logger *logging.Logger) *Detector {
	return NewDetectorWithNVML(NewRealNVML(), run, logger)
}

// NewDetectorWithNVML creates a detector with a custom NVML interface (for testing)
func NewDetectorWithNVML(nvmlInterface NVMLInterface, run execx.Runner, logger *logging.Logger) *Detector {
	return &Detector{
		nvml:   nvmlInterface,
		run:    run,
		logger: logger,
	}
}

// Detect returns the installed driver's CUDA support.
func (d *Detector) Detect(ctx context.Context) (DriverInfo, error) {
	info, ok := d.detectNVML()
	if ok {
		return info, nil
	}

	info, err := querySMI(ctx, d.run)
	if err != nil {
		return DriverInfo{}, err
	}
	d.logger.Info("gpu.driver.detected", "CUDA driver detected", map[string]interface{}{
		"cuda":   info.CUDA.String(),
		"driver": info.DriverVersion,
		"source": info.Source,
	})
	return info, nil
}

func (d *Detector) detectNVML() (DriverInfo, bool) {
	ret := d.nvml.Init()
	if ret != nvml.SUCCESS {
		d.logger.Warn("gpu.nvml.init.failed", "NVML initialization failed, trying nvidia-smi", map[string]interface{}{
			"error": nvml.ErrorString(ret),
		})
		return DriverInfo{}, false
	}
	defer d.nvml.Shutdown()

	cudaVersion, ret := d.nvml.SystemGetCudaDriverVersion()
	if ret != nvml.SUCCESS {
		d.logger.Warn("gpu.cuda.version.failed", "Failed to get CUDA version", map[string]interface{}{
			"error": nvml.ErrorString(ret),
		})
		return DriverInfo{}, false
	}

	info := DriverInfo{CUDA: cudaFromDriverInt(cudaVersion), Source: "nvml"}

	if driverVersion, ret := d.nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		info.DriverVersion = driverVersion
	}
	if count, ret := d.nvml.DeviceGetCount(); ret == nvml.SUCCESS {
		info.Devices = count
	}

	d.logger.Info("gpu.driver.detected", "CUDA driver detected", map[string]interface{}{
		"cuda":    info.CUDA.String(),
		"driver":  info.DriverVersion,
		"devices": info.Devices,
		"source":  info.Source,
	})
	return info, true
}
