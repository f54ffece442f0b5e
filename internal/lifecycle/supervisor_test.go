package lifecycle

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func newSupervisor(t *testing.T) (*PidfileSupervisor, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewPidfileSupervisor(filepath.Join(dir, "run"))
	if err != nil {
		t.Fatalf("new supervisor: %v", err)
	}
	return s, dir
}

func TestSpawnTerminateRoundTrip(t *testing.T) {
	s, dir := newSupervisor(t)
	logPath := filepath.Join(dir, "node.log")

	pid, err := s.SpawnDetached("gaia-node-1", "sleep", []string{"30"}, logPath)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("expected positive pid, got %d", pid)
	}
	t.Cleanup(func() { _, _ = s.Terminate("gaia-node-1") })

	if !s.IsRunning("gaia-node-1") {
		t.Fatalf("expected session running")
	}
	found, err := s.Terminate("gaia-node-1")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if !found {
		t.Fatalf("expected process found")
	}
	if s.IsRunning("gaia-node-1") {
		t.Fatalf("expected session stopped")
	}
}

func TestTerminateNotFound(t *testing.T) {
	s, _ := newSupervisor(t)
	found, err := s.Terminate("gaia-node-9")
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}

func TestStalePidfileIsCleaned(t *testing.T) {
	s, _ := newSupervisor(t)
	// A process that has already exited leaves a stale pid behind.
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	stale := cmd.Process.Pid
	pidfile := s.pidfile("gaia-node-2")
	if err := os.WriteFile(pidfile, []byte(strconv.Itoa(stale)), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}

	if s.IsRunning("gaia-node-2") {
		t.Fatalf("stale session reported running")
	}
	if _, err := os.Stat(pidfile); !os.IsNotExist(err) {
		t.Fatalf("expected stale pidfile removed")
	}
	found, err := s.Terminate("gaia-node-2")
	if err != nil || found {
		t.Fatalf("stale terminate should be not-found success, got found=%v err=%v", found, err)
	}
}

func TestSessionsFiltersByPrefixAndLiveness(t *testing.T) {
	s, dir := newSupervisor(t)
	logPath := filepath.Join(dir, "node.log")
	for _, session := range []string{"gaia-node-1", "gaia-node-2"} {
		if _, err := s.SpawnDetached(session, "sleep", []string{"30"}, logPath); err != nil {
			t.Fatalf("spawn %s: %v", session, err)
		}
		session := session
		t.Cleanup(func() { _, _ = s.Terminate(session) })
	}
	if err := os.WriteFile(s.pidfile("other-1"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("write pidfile: %v", err)
	}

	got := s.Sessions("gaia-node")
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %v", got)
	}
	if _, err := s.Terminate("gaia-node-1"); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if got := s.Sessions("gaia-node"); len(got) != 1 {
		t.Fatalf("expected 1 live session after terminate, got %v", got)
	}
}

func TestSpawnWritesOutputToLog(t *testing.T) {
	s, dir := newSupervisor(t)
	logPath := filepath.Join(dir, "node.log")
	if _, err := s.SpawnDetached("gaia-node-3", "sh", []string{"-c", "echo started"}, logPath); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		b, _ := os.ReadFile(logPath)
		if string(b) == "started\n" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	b, _ := os.ReadFile(logPath)
	t.Fatalf("node output not captured, log=%q", string(b))
}
