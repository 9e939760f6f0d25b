//go:build !cuda

package gpu

import (
	"context"

	"cudaconf/internal/execx"
	"cudaconf/internal/logging"
)

// Detector reports the driver through nvidia-smi when built without NVML.
type Detector struct {
	run    execx.Runner
	logger *logging.Logger
}

// NewDetector creates a driver detector that skips NVML when CUDA support is disabled.
func NewDetector(logger *logging.Logger) *Detector {
	return NewDetectorWithRunner(execx.Run, logger)
}

// NewDetectorWithRunner creates a detector with a custom command runner.
func NewDetectorWithRunner(run execx.Runner, logger *logging.Logger) *Detector {
	return &Detector{run: run, logger: logger}
}

// Detect returns the installed driver's CUDA support.
func (d *Detector) Detect(ctx context.Context) (DriverInfo, error) {
	d.logger.Debug("gpu.nvml.disabled", "Skipping NVML detection (built without cuda tag)", nil)

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
