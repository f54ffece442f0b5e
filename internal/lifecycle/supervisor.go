package lifecycle

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Supervisor abstracts detached process management behind session
// identifiers, so the lifecycle never talks to the OS directly and tests
// can substitute a fake.
type Supervisor interface {
	// SpawnDetached starts name with args as a background process tagged
	// with session, its output redirected to logPath. Returns the pid.
	SpawnDetached(session, name string, args []string, logPath string) (int, error)
	// Terminate signals the session's process to exit. found is false when
	// no such process exists, which callers treat as the goal state already
	// holding.
	Terminate(session string) (found bool, err error)
	// IsRunning queries the real process, never cached state.
	IsRunning(session string) bool
	// Sessions lists live sessions whose id starts with prefix.
	Sessions(prefix string) []string
}

// Runner executes a foreground command to completion.
type Runner interface {
	Run(name string, args ...string) error
}

// ExecRunner runs commands directly, surfacing combined output on failure.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		tail := string(out)
		if len(tail) > 2048 {
			tail = tail[len(tail)-2048:]
		}
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(tail))
	}
	return nil
}

// termGrace is how long Terminate waits after SIGTERM before SIGKILL.
const termGrace = 2 * time.Second

// PidfileSupervisor tracks detached processes through pidfiles under a run
// directory, surviving orchestrator restarts: any process that can be
// signaled by the recorded pid is considered alive.
type PidfileSupervisor struct {
	runDir string
}

// NewPidfileSupervisor creates the run directory if needed.
func NewPidfileSupervisor(runDir string) (*PidfileSupervisor, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &PidfileSupervisor{runDir: runDir}, nil
}

func (s *PidfileSupervisor) pidfile(session string) string {
	return filepath.Join(s.runDir, session+".pid")
}

func (s *PidfileSupervisor) SpawnDetached(session, name string, args []string, logPath string) (int, error) {
	logf, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("open node log: %w", err)
	}
	cmd := exec.Command(name, args...)
	cmd.Stdout = logf
	cmd.Stderr = logf
	cmd.Stdin = nil
	// New session so the node outlives the orchestrator.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		_ = logf.Close()
		return 0, err
	}
	_ = logf.Close()
	pid := cmd.Process.Pid
	if err := os.WriteFile(s.pidfile(session), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return 0, fmt.Errorf("write pidfile: %w", err)
	}
	// Reap when the child exits so it never lingers as a zombie.
	go func() { _, _ = cmd.Process.Wait() }()
	return pid, nil
}

// livePid returns the recorded pid when the process still answers signal 0.
// Stale pidfiles are cleaned up on the way.
func (s *PidfileSupervisor) livePid(session string) (int, bool) {
	b, err := os.ReadFile(s.pidfile(session))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		_ = os.Remove(s.pidfile(session))
		return 0, false
	}
	if syscall.Kill(pid, 0) != nil {
		_ = os.Remove(s.pidfile(session))
		return 0, false
	}
	return pid, true
}

func (s *PidfileSupervisor) IsRunning(session string) bool {
	_, ok := s.livePid(session)
	return ok
}

func (s *PidfileSupervisor) Terminate(session string) (bool, error) {
	pid, ok := s.livePid(session)
	if !ok {
		return false, nil
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			_ = os.Remove(s.pidfile(session))
			return false, nil
		}
		return true, fmt.Errorf("terminate %s (pid %d): %w", session, pid, err)
	}
	deadline := time.Now().Add(termGrace)
	for time.Now().Before(deadline) {
		if syscall.Kill(pid, 0) != nil {
			_ = os.Remove(s.pidfile(session))
			return true, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)
	_ = os.Remove(s.pidfile(session))
	return true, nil
}

func (s *PidfileSupervisor) Sessions(prefix string) []string {
	entries, err := os.ReadDir(s.runDir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if !strings.HasSuffix(name, ".pid") {
			continue
		}
		session := strings.TrimSuffix(name, ".pid")
		if !strings.HasPrefix(session, prefix) {
			continue
		}
		if s.IsRunning(session) {
			out = append(out, session)
		}
	}
	return out
}
