package hostcheck

import (
	"os/exec"
	"runtime"
	"strings"

	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

// Profiler detects accelerators and CPU cores. Absence of an accelerator is
// a supported mode, never an error.
type Profiler struct {
	queryGPU func() (string, error)
	numCPU   func() int
}

// NewProfiler returns a Profiler backed by nvidia-smi and runtime.NumCPU.
func NewProfiler() *Profiler {
	return &Profiler{queryGPU: queryNvidiaSMI, numCPU: runtime.NumCPU}
}

// Profile fills the accelerator and CPU fields of a HostProfile. When
// multiple accelerators are present only the first enumerated name is kept;
// it is the one used for model ranking.
func (p *Profiler) Profile() types.HostProfile {
	prof := types.HostProfile{CPUCores: p.numCPU()}
	out, err := p.queryGPU()
	if err != nil {
		return prof
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	prof.AcceleratorCount = len(names)
	if len(names) > 0 {
		prof.AcceleratorName = names[0]
	}
	return prof
}

func queryNvidiaSMI() (string, error) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}
