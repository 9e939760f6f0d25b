package gpu

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cudaconf/internal/execx"
	"cudaconf/internal/fault"
	"cudaconf/internal/version"
)

var (
	smiCUDAPattern   = regexp.MustCompile(`CUDA Version:\s*(\d+)\.(\d+)`)
	smiDriverPattern = regexp.MustCompile(`Driver Version:\s*([0-9.]+)`)
	smiDevicePattern = regexp.MustCompile(`(?m)^\|\s+\d+\s+\S`)
)

// parseSMI extracts the driver details from the nvidia-smi banner.
func parseSMI(output string) (DriverInfo, error) {
	m := smiCUDAPattern.FindStringSubmatch(output)
	if m == nil {
		return DriverInfo{}, fmt.Errorf("no CUDA version in nvidia-smi output")
	}
	cuda, err := version.Parse(m[1] + "." + m[2])
	if err != nil {
		return DriverInfo{}, err
	}

	info := DriverInfo{CUDA: cuda, Source: "nvidia-smi"}
	if d := smiDriverPattern.FindStringSubmatch(output); d != nil {
		info.DriverVersion = d[1]
	}
	info.Devices = len(smiDevicePattern.FindAllString(output, -1))
	return info, nil
}

// querySMI runs nvidia-smi and parses its banner.
func querySMI(ctx context.Context, run execx.Runner) (DriverInfo, error) {
	out, err := run(ctx, "nvidia-smi")
	if err != nil {
		return DriverInfo{}, fault.Wrap(fault.MissingDependency, err,
			"cannot determine the CUDA driver version (is the NVIDIA driver installed?)")
	}
	info, err := parseSMI(strings.TrimSpace(string(out)))
	if err != nil {
		return DriverInfo{}, fault.Wrap(fault.MissingDependency, err, "unexpected nvidia-smi output")
	}
	return info, nil
}
