package hostcheck

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Debrajkhanra88/Gaia/internal/common/fsutil"
	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

// Thresholds holds preflight limits. Advisory selects the permissive
// variant: memory/disk shortfalls produce a reduced node count instead of
// aborting. Port conflicts abort regardless.
type Thresholds struct {
	MinMemoryGB  int
	MinDiskGB    int
	BasePort     int
	PortCount    int
	PerNodeMemGB int
	Advisory     bool
	InstallRoot  string
}

// Validator probes host resources. Probe funcs are swappable so tests can
// simulate any host without touching system state.
type Validator struct {
	memGB    func() (int, error)
	diskGB   func(path string) (int, error)
	portBusy func(port int) bool
}

// NewValidator returns a Validator backed by real system probes.
func NewValidator() *Validator {
	return &Validator{
		memGB:    readMemTotalGB,
		diskGB:   diskAvailGB,
		portBusy: isPortBusy,
	}
}

// Validate checks memory, disk and port availability against t. Returns a
// nil advisory on a clean pass; a non-nil advisory only in advisory mode
// when the host falls short but can still run a reduced fleet. Reads system
// state only, no side effects.
func (v *Validator) Validate(t Thresholds) (*types.Advisory, error) {
	memGB, err := v.memGB()
	if err != nil {
		return nil, fmt.Errorf("read memory: %w", err)
	}
	diskGB, err := v.diskGB(fsutil.NearestExisting(t.InstallRoot))
	if err != nil {
		return nil, fmt.Errorf("read disk: %w", err)
	}

	var reasons []string
	if memGB < t.MinMemoryGB {
		if !t.Advisory {
			return nil, insufficientMemoryError{gotGB: memGB, minGB: t.MinMemoryGB}
		}
		reasons = append(reasons, fmt.Sprintf("memory %d GB below %d GB", memGB, t.MinMemoryGB))
	}
	if diskGB < t.MinDiskGB {
		if !t.Advisory {
			return nil, insufficientDiskError{gotGB: diskGB, minGB: t.MinDiskGB}
		}
		reasons = append(reasons, fmt.Sprintf("disk %d GB below %d GB", diskGB, t.MinDiskGB))
	}

	// Port conflicts are never advisory.
	for p := t.BasePort; p < t.BasePort+t.PortCount; p++ {
		if v.portBusy(p) {
			return nil, portInUseError{port: p}
		}
	}

	if len(reasons) == 0 {
		return nil, nil
	}
	maxNodes := memGB / t.PerNodeMemGB
	if maxNodes < 1 {
		maxNodes = 1
	}
	return &types.Advisory{MaxNodes: maxNodes, Reason: strings.Join(reasons, "; ")}, nil
}

// readMemTotalGB parses MemTotal from /proc/meminfo (kB).
func readMemTotalGB() (int, error) {
	b, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(b), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return 0, fmt.Errorf("parse MemTotal: %w", err)
		}
		return kb / (1024 * 1024), nil
	}
	return 0, fmt.Errorf("MemTotal not found in /proc/meminfo")
}

// diskAvailGB returns available space on the filesystem containing path.
func diskAvailGB(path string) (int, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return int(uint64(st.Bavail) * uint64(st.Bsize) / (1 << 30)), nil
}

// isPortBusy tries connecting; if it succeeds, someone is listening.
func isPortBusy(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return true
	}
	return false
}
