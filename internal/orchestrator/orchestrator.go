package orchestrator

import (
	"github.com/Debrajkhanra88/Gaia/internal/config"
	"github.com/Debrajkhanra88/Gaia/internal/hostcheck"
	"github.com/Debrajkhanra88/Gaia/internal/httpapi"
	"github.com/Debrajkhanra88/Gaia/internal/installog"
	"github.com/Debrajkhanra88/Gaia/internal/lifecycle"
	"github.com/Debrajkhanra88/Gaia/internal/nodestore"
	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

// HostValidator gates provisioning on host resources.
type HostValidator interface {
	Validate(hostcheck.Thresholds) (*types.Advisory, error)
}

// HardwareProfiler detects accelerators and CPU cores.
type HardwareProfiler interface {
	Profile() types.HostProfile
}

// ModelSelector ranks a model configuration for the detected hardware.
type ModelSelector interface {
	Select(profile types.HostProfile, override string) types.ModelChoice
}

// Orchestrator composes preflight, hardware profiling, model selection and
// the node lifecycle into the full provisioning sequence, then serves the
// interactive management loop. One node operation at a time; started nodes
// run on as independent background processes.
type Orchestrator struct {
	cfg       config.Config
	validator HostValidator
	profiler  HardwareProfiler
	selector  ModelSelector
	store     *nodestore.Store
	lc        *lifecycle.Lifecycle
	log       *installog.Logger

	nodeCount int
	choice    types.ModelChoice
}

// New wires an Orchestrator over its collaborators.
func New(cfg config.Config, v HostValidator, p HardwareProfiler, sel ModelSelector, store *nodestore.Store, lc *lifecycle.Lifecycle, log *installog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		validator: v,
		profiler:  p,
		selector:  sel,
		store:     store,
		lc:        lc,
		log:       log,
		nodeCount: cfg.Nodes,
	}
}

func (o *Orchestrator) thresholds() hostcheck.Thresholds {
	return hostcheck.Thresholds{
		MinMemoryGB:  o.cfg.Preflight.MinMemoryGB,
		MinDiskGB:    o.cfg.Preflight.MinDiskGB,
		BasePort:     o.cfg.BasePort,
		PortCount:    o.cfg.Preflight.PortCount,
		PerNodeMemGB: o.cfg.Preflight.PerNodeMemGB,
		Advisory:     o.cfg.Preflight.DiskPolicy == config.PolicyAdvisory,
		InstallRoot:  o.store.Root(),
	}
}

// Provision runs the full sequence: preflight gate, hardware profile, model
// selection, then init+start for each index. A failed node is logged and
// skipped; only preflight failures abort the run.
func (o *Orchestrator) Provision() error {
	adv, err := o.validator.Validate(o.thresholds())
	if err != nil {
		o.log.Errorf("preflight failed: %v", err)
		return err
	}
	o.log.Infof("preflight passed")

	profile := o.profiler.Profile()
	if profile.AcceleratorCount > 0 {
		o.log.Infof("detected %d accelerator(s), using %q", profile.AcceleratorCount, profile.AcceleratorName)
	} else {
		o.log.Infof("no accelerator detected, CPU-only mode (%d cores)", profile.CPUCores)
	}

	o.choice = o.selector.Select(profile, o.cfg.ModelOverride)
	o.log.Infof("selected model %s (%s)", o.choice.ID, o.choice.Label)

	n := o.cfg.Nodes
	if adv != nil && adv.MaxNodes < n {
		o.log.Warnf("%s: reducing node count from %d to %d", adv.Reason, n, adv.MaxNodes)
		n = adv.MaxNodes
	}
	o.nodeCount = n

	for i := 1; i <= n; i++ {
		if _, err := o.store.CreateOrGet(i); err != nil {
			o.log.Errorf("node %d: %v", i, err)
			httpapi.RecordNodeOp("init", err)
			continue
		}
		if err := o.lc.Init(i, o.choice); err != nil {
			o.log.Errorf("node %d: init failed: %v", i, err)
			httpapi.RecordNodeOp("init", err)
			continue
		}
		httpapi.RecordNodeOp("init", nil)
		if err := o.lc.Start(i); err != nil {
			o.log.Errorf("node %d: start failed: %v", i, err)
			httpapi.RecordNodeOp("start", err)
			continue
		}
		httpapi.RecordNodeOp("start", nil)
		r, _ := o.store.Get(i)
		o.log.Infof("node %d running on port %d", i, r.Port)
	}
	return nil
}

// NodeCount is the effective fleet size after any advisory reduction.
func (o *Orchestrator) NodeCount() int { return o.nodeCount }

// Nodes returns the live fleet view, refreshing each record against the
// supervisor on the way. Implements the status API's Service. Works entirely
// on record copies: the API goroutine calls this concurrently with menu
// operations mutating the store.
func (o *Orchestrator) Nodes() []types.NodeStatus {
	records := o.store.Snapshot()
	out := make([]types.NodeStatus, 0, len(records))
	running := 0
	for _, r := range records {
		st, err := o.lc.Status(r.Index)
		if err != nil {
			continue
		}
		if st == types.StateRunning {
			running++
		}
		cur, _ := o.store.Get(r.Index)
		out = append(out, types.NodeStatus{
			Index:     cur.Index,
			State:     st,
			Port:      cur.Port,
			Dir:       cur.Dir,
			Model:     cur.Config.ID,
			LastError: cur.LastErr,
		})
	}
	httpapi.SetNodesRunning(running)
	return out
}
