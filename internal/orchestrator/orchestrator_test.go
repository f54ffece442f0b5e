package orchestrator

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Debrajkhanra88/Gaia/internal/config"
	"github.com/Debrajkhanra88/Gaia/internal/hostcheck"
	"github.com/Debrajkhanra88/Gaia/internal/installog"
	"github.com/Debrajkhanra88/Gaia/internal/lifecycle"
	"github.com/Debrajkhanra88/Gaia/internal/modelsel"
	"github.com/Debrajkhanra88/Gaia/internal/nodestore"
	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

type fakeValidator struct {
	adv *types.Advisory
	err error
}

func (f fakeValidator) Validate(hostcheck.Thresholds) (*types.Advisory, error) {
	return f.adv, f.err
}

type fakeProfiler struct{ profile types.HostProfile }

func (f fakeProfiler) Profile() types.HostProfile { return f.profile }

// fakeSupervisor is mutex-guarded: the status API exercises it from a second
// goroutine.
type fakeSupervisor struct {
	mu      sync.Mutex
	running map[string]bool
	spawns  map[string]int
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{running: make(map[string]bool), spawns: make(map[string]int)}
}

func (f *fakeSupervisor) SpawnDetached(session, name string, args []string, logPath string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawns[session]++
	f.running[session] = true
	return 2000 + f.spawns[session], nil
}

func (f *fakeSupervisor) Terminate(session string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running[session] {
		return false, nil
	}
	delete(f.running, session)
	return true, nil
}

func (f *fakeSupervisor) IsRunning(session string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[session]
}

func (f *fakeSupervisor) Sessions(prefix string) []string { return nil }

func (f *fakeSupervisor) kill(session string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.running, session)
}

// fakeRunner fails init for directories matching failDir.
type fakeRunner struct{ failDir string }

func (f *fakeRunner) Run(name string, args ...string) error {
	if f.failDir != "" {
		for _, a := range args {
			if strings.Contains(a, f.failDir) {
				return errors.New("exit status 1")
			}
		}
	}
	return nil
}

type fakeSource struct{ body string }

func (f fakeSource) Fetch(string) ([]byte, error) { return []byte(f.body), nil }

type harness struct {
	orc   *Orchestrator
	store *nodestore.Store
	sup   *fakeSupervisor
	lc    *lifecycle.Lifecycle
}

func newHarness(t *testing.T, cfg config.Config, v HostValidator, p HardwareProfiler, run lifecycle.Runner) *harness {
	t.Helper()
	cfg.InstallRoot = t.TempDir()
	cfg = cfg.ApplyDefaults()
	store, err := nodestore.New(cfg.InstallRoot, cfg.BasePort)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	sup := newFakeSupervisor()
	lc := lifecycle.New(store, sup, run, fakeSource{body: `{"chat": "model.gguf"}`}, cfg.NodeBin)
	log, err := installog.Open(cfg.InstallRoot, zerolog.Nop())
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	orc := New(cfg, v, p, modelsel.New(), store, lc, log)
	return &harness{orc: orc, store: store, sup: sup, lc: lc}
}

func TestProvisionFullFleet(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 3, BasePort: 8080},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{AcceleratorCount: 1, AcceleratorName: "NVIDIA A100"}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}
	nodes := h.orc.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	wantPorts := []int{8081, 8082, 8083}
	for i, n := range nodes {
		if n.Index != i+1 || n.Port != wantPorts[i] {
			t.Fatalf("unexpected node %d: %+v", i, n)
		}
		if n.State != types.StateRunning {
			t.Fatalf("node %d not running: %+v", n.Index, n)
		}
		if n.Model != "llama-3.1-8b-instruct" {
			t.Fatalf("expected high-end model for A100, got %q", n.Model)
		}
	}
}

func TestProvisionPreflightFailureIsFatal(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 3},
		fakeValidator{err: errors.New("insufficient memory: 8 GB available, 16 GB required")},
		fakeProfiler{},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err == nil {
		t.Fatalf("expected preflight error")
	}
	if len(h.store.Snapshot()) != 0 {
		t.Fatalf("no node must be touched after preflight failure")
	}
}

func TestProvisionAdvisoryReducesNodeCount(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 3},
		fakeValidator{adv: &types.Advisory{MaxNodes: 2, Reason: "memory 8 GB below 16 GB"}},
		fakeProfiler{profile: types.HostProfile{CPUCores: 8}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if h.orc.NodeCount() != 2 {
		t.Fatalf("expected reduced count 2, got %d", h.orc.NodeCount())
	}
	if len(h.store.Snapshot()) != 2 {
		t.Fatalf("expected 2 records, got %d", len(h.store.Snapshot()))
	}
}

func TestProvisionContinuesPastFailedNode(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 3},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{CPUCores: 4}},
		&fakeRunner{failDir: "node-2"},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision must not abort on one node: %v", err)
	}
	nodes := h.orc.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected 3 records, got %d", len(nodes))
	}
	if nodes[0].State != types.StateRunning || nodes[2].State != types.StateRunning {
		t.Fatalf("siblings of failed node must run: %+v", nodes)
	}
	if nodes[1].State != types.StateUninitialized || nodes[1].LastError == "" {
		t.Fatalf("failed node must stay uninitialized with error: %+v", nodes[1])
	}
}

// The status API serves Nodes from its own goroutine while the menu thread
// stops and starts nodes. Run under -race this catches any record field
// escaping the store lock.
func TestNodesConcurrentWithLifecycleOps(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 2},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{CPUCores: 4}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			for _, n := range h.orc.Nodes() {
				if n.Index < 1 || n.Port == 0 || n.Dir == "" {
					t.Errorf("torn node view: %+v", n)
					return
				}
			}
		}
	}()
	for i := 0; i < 200; i++ {
		if err := h.lc.Stop(1); err != nil {
			t.Fatalf("stop: %v", err)
		}
		if err := h.lc.Start(1); err != nil {
			t.Fatalf("start: %v", err)
		}
	}
	<-done

	if st, err := h.lc.Status(1); err != nil || st != types.StateRunning {
		t.Fatalf("expected node 1 running after churn, got %q err=%v", st, err)
	}
}

func TestMenuListAndExit(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 1},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{CPUCores: 4}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}
	var out strings.Builder
	in := strings.NewReader("1\n6\n")
	if err := h.orc.RunMenu(in, &out); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if !strings.Contains(out.String(), "node 1") {
		t.Fatalf("expected node listing, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "exiting; nodes keep running") {
		t.Fatalf("expected graceful exit message")
	}
}

func TestMenuRejectsOutOfRangeIndex(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 2},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{CPUCores: 4}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}
	var out strings.Builder
	// stop node 5 (out of range), stop garbage, then stop node 2, then exit.
	in := strings.NewReader("3\n5\n3\nabc\n3\n2\n6\n")
	if err := h.orc.RunMenu(in, &out); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if c := strings.Count(out.String(), "node index out of range"); c != 2 {
		t.Fatalf("expected 2 rejections, got %d:\n%s", c, out.String())
	}
	if !strings.Contains(out.String(), "node 2 stopped") {
		t.Fatalf("valid index should still work:\n%s", out.String())
	}
	if h.sup.IsRunning(lifecycle.Session(2)) {
		t.Fatalf("node 2 should be stopped")
	}
}

func TestMenuRestartAll(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 2},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{CPUCores: 4}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}
	// Node 2 dies out-of-band; restart all must recover it anyway.
	h.sup.kill(lifecycle.Session(2))

	var out strings.Builder
	in := strings.NewReader("4\n6\n")
	if err := h.orc.RunMenu(in, &out); err != nil {
		t.Fatalf("menu: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if !h.sup.IsRunning(lifecycle.Session(i)) {
			t.Fatalf("node %d should be running after restart all", i)
		}
	}
}

func TestMenuInvalidSelectionContinues(t *testing.T) {
	h := newHarness(t,
		config.Config{Nodes: 1},
		fakeValidator{},
		fakeProfiler{profile: types.HostProfile{CPUCores: 4}},
		&fakeRunner{},
	)
	if err := h.orc.Provision(); err != nil {
		t.Fatalf("provision: %v", err)
	}
	var out strings.Builder
	in := strings.NewReader("9\nbogus\n6\n")
	if err := h.orc.RunMenu(in, &out); err != nil {
		t.Fatalf("menu: %v", err)
	}
	if c := strings.Count(out.String(), "invalid selection"); c != 2 {
		t.Fatalf("expected 2 invalid-selection messages, got %d", c)
	}
}
