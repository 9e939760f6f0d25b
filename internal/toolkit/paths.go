package toolkit

import (
	"fmt"
	"strconv"

	"cudaconf/internal/fault"
	"cudaconf/internal/logging"
	"cudaconf/internal/version"
)

// pathSet derives the component paths below roots. Required components
// fail the derivation, optional ones are reported as warnings.
func pathSet(prober Prober, naming Naming, roots []string, v version.Version, logger *logging.Logger) (map[Component]string, []fault.Warning, error) {
	paths := make(map[Component]string, len(Components))
	var warnings []fault.Warning

	sonames := []string{v.MajorMinor().String(), strconv.Itoa(v.Major)}

	for _, c := range Components {
		var (
			path  string
			found bool
		)
		switch c {
		case Disassembler:
			path, found = prober.FindBinary(disassemblerName, roots)
		case CUPTI:
			path, found = prober.FindLibrary(naming.SharedLibrary(cuptiName), roots, sonames)
		case NVTX:
			path, found = prober.FindLibrary(naming.SharedLibrary(nvtxName), roots, []string{"1"})
		case StaticDevRT:
			path, found = prober.FindLibrary(naming.StaticLibrary(devrtName), roots, nil)
		case DeviceBitcode:
			path, found = prober.FindLibrary(bitcodeFile, roots, nil)
		}

		if found {
			paths[c] = path
			continue
		}

		if c.Required() {
			kind := fault.MissingRequiredArtifact
			if c == Disassembler {
				kind = fault.MissingRequiredBinary
			}
			return nil, nil, fault.New(kind, "CUDA %s: required component %s not found under %v", v, c, roots)
		}

		w := fault.Warning{
			Code:    "toolkit." + string(c) + ".missing",
			Message: fmt.Sprintf("optional component %s not found; dependent features are disabled", c),
		}
		logger.Warn(w.Code, w.Message, map[string]interface{}{
			"version": v.String(),
			"roots":   roots,
		})
		warnings = append(warnings, w)
	}

	return paths, warnings, nil
}
