package lifecycle

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/Debrajkhanra88/Gaia/internal/nodestore"
	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

// SessionPrefix tags every node process so it can be located later.
const SessionPrefix = "gaia-node"

// NodeLogName is the per-node output capture file inside the data dir.
const NodeLogName = "node.log"

// Session derives the stable session identifier for a node index.
func Session(index int) string {
	return SessionPrefix + "-" + strconv.Itoa(index)
}

// Lifecycle drives one node at a time through
// uninitialized → initialized → running → stopped. All operations are
// node-scoped: a failure updates only that node's record.
type Lifecycle struct {
	store   *nodestore.Store
	sup     Supervisor
	run     Runner
	source  ConfigSource
	nodeBin string
}

// New wires a Lifecycle over its collaborators.
func New(store *nodestore.Store, sup Supervisor, run Runner, source ConfigSource, nodeBin string) *Lifecycle {
	return &Lifecycle{store: store, sup: sup, run: run, source: source, nodeBin: nodeBin}
}

func (l *Lifecycle) record(index int) (nodestore.Record, error) {
	r, ok := l.store.Get(index)
	if !ok {
		return nodestore.Record{}, fmt.Errorf("no record for node %d", index)
	}
	return r, nil
}

func (l *Lifecycle) setError(index int, err error) {
	l.store.Update(index, func(r *nodestore.Record) { r.LastErr = err.Error() })
}

// Init fetches the model configuration for choice, validates it, persists
// it and runs the node binary's init entry point. On success the node
// becomes Initialized; on any failure it stays Uninitialized with the error
// recorded, leaving every other node untouched.
func (l *Lifecycle) Init(index int, choice types.ModelChoice) error {
	r, err := l.record(index)
	if err != nil {
		return err
	}
	if r.State != types.StateUninitialized {
		return transitionError{index: index, op: "init", state: string(r.State)}
	}

	data, err := l.source.Fetch(choice.URL)
	if err != nil {
		l.setError(index, err)
		return err
	}
	if err := validateStructured(data, choice.URL); err != nil {
		l.setError(index, err)
		return err
	}
	cfgPath, err := l.store.PersistConfig(index, data)
	if err != nil {
		l.setError(index, err)
		return err
	}
	if err := l.run.Run(l.nodeBin, "init", "--config", cfgPath, "--data-dir", r.Dir); err != nil {
		err = fmt.Errorf("node init: %w", err)
		l.setError(index, err)
		return err
	}
	l.store.Update(index, func(r *nodestore.Record) {
		r.State = types.StateInitialized
		r.Config = choice
		r.LastErr = ""
	})
	return nil
}

// Start spawns the node's detached process. Starting an already running
// node is a no-op returning success: re-invoking start must never create a
// duplicate process for the same index.
func (l *Lifecycle) Start(index int) error {
	r, err := l.record(index)
	if err != nil {
		return err
	}
	session := Session(index)
	if l.sup.IsRunning(session) {
		l.store.Update(index, func(r *nodestore.Record) { r.State = types.StateRunning })
		return nil
	}
	if r.State != types.StateInitialized && r.State != types.StateStopped {
		return transitionError{index: index, op: "start", state: string(r.State)}
	}
	args := []string{"start", "--port", strconv.Itoa(r.Port), "--data-dir", r.Dir}
	logPath := filepath.Join(r.Dir, NodeLogName)
	if _, err := l.sup.SpawnDetached(session, l.nodeBin, args, logPath); err != nil {
		err = startFailedError{index: index, err: err}
		l.setError(index, err)
		return err
	}
	l.store.Update(index, func(r *nodestore.Record) {
		r.State = types.StateRunning
		r.LastErr = ""
	})
	return nil
}

// Stop terminates the node's process. A missing process is success: the
// desired end state already holds.
func (l *Lifecycle) Stop(index int) error {
	if _, err := l.record(index); err != nil {
		return err
	}
	if _, err := l.sup.Terminate(Session(index)); err != nil {
		l.setError(index, err)
		return err
	}
	l.store.Update(index, func(r *nodestore.Record) {
		// Only a started node moves to Stopped; an uninitialized or
		// never-started record keeps its state so start preconditions hold.
		if r.State == types.StateRunning {
			r.State = types.StateStopped
			r.LastErr = ""
		}
	})
	return nil
}

// Restart is best-effort stop then start. A stale or already-dead session
// must never block recovery, so stop failures do not gate the start phase.
func (l *Lifecycle) Restart(index int) error {
	_ = l.Stop(index)
	return l.Start(index)
}

// Status queries the supervisor for the node's real state and syncs the
// record. The in-memory state is never trusted alone: the process may have
// died out-of-band, and what the operator sees must reflect the real world.
func (l *Lifecycle) Status(index int) (types.NodeState, error) {
	r, err := l.record(index)
	if err != nil {
		return "", err
	}
	if l.sup.IsRunning(Session(index)) {
		l.store.Update(index, func(r *nodestore.Record) { r.State = types.StateRunning })
		return types.StateRunning, nil
	}
	if r.State == types.StateRunning {
		l.store.Update(index, func(r *nodestore.Record) { r.State = types.StateStopped })
	}
	r, _ = l.store.Get(index)
	return r.State, nil
}

// NodeLogPath returns the output capture file for a node.
func (l *Lifecycle) NodeLogPath(index int) (string, error) {
	r, err := l.record(index)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.Dir, NodeLogName), nil
}
