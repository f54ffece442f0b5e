package nodestore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/Debrajkhanra88/Gaia/internal/common/fsutil"
	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

// ConfigFileName is the persisted model configuration per node.
const ConfigFileName = "config.json"

// Record is the mutable state of one node. Index is 1-based; the derived
// port and directory are pure functions of it and never change for the
// lifetime of the process. Records are never deleted: a stopped node keeps
// its record so it can be restarted.
type Record struct {
	Index   int
	State   types.NodeState
	Dir     string
	Port    int
	Config  types.ModelChoice
	LastErr string
}

// Store owns the set of node records and their on-disk layout under a
// single install root. The map is guarded so the status API can read
// snapshots while the orchestrator mutates.
type Store struct {
	mu       sync.RWMutex
	root     string
	basePort int
	records  map[int]*Record
}

// New creates a Store rooted at root. The root itself is created lazily by
// CreateOrGet.
func New(root string, basePort int) (*Store, error) {
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, err
	}
	return &Store{root: expanded, basePort: basePort, records: make(map[int]*Record)}, nil
}

// Root returns the install root path.
func (s *Store) Root() string { return s.root }

func (s *Store) dirFor(index int) string {
	return filepath.Join(s.root, fmt.Sprintf("node-%d", index))
}

// CreateOrGet returns the record for index, creating it (and its data
// directory) on first use. Idempotent: a second call returns the same
// record and duplicates no state.
func (s *Store) CreateOrGet(index int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[index]; ok {
		return *r, nil
	}
	dir := s.dirFor(index)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Record{}, fmt.Errorf("create node dir: %w", err)
	}
	r := &Record{
		Index: index,
		State: types.StateUninitialized,
		Dir:   dir,
		Port:  s.basePort + index,
	}
	s.records[index] = r
	return *r, nil
}

// Get returns a copy of the record for index if it exists. Callers never see
// the live record: all mutation goes through Update under the store lock, so
// the status API goroutine and the menu thread cannot race on record fields.
func (s *Store) Get(index int) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[index]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Update applies fn to the record for index under the store lock.
func (s *Store) Update(index int, fn func(*Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[index]; ok {
		fn(r)
	}
}

// PersistConfig writes the node's configuration file and returns its path.
func (s *Store) PersistConfig(index int, data []byte) (string, error) {
	s.mu.RLock()
	var dir string
	r, ok := s.records[index]
	if ok {
		dir = r.Dir
	}
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no record for node %d", index)
	}
	p := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", configWriteError{index: index, err: err}
	}
	return p, nil
}

// Snapshot returns copies of all records ordered by index ascending, safe to
// hand to other goroutines.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

var nodeDirPattern = regexp.MustCompile(`^node-([0-9]+)$`)

// Discover rebuilds records from an existing install root so single
// operations (status/start/stop) can run without re-provisioning. Nodes
// with a persisted configuration come back as Initialized; their live state
// is refined by the supervisor on the first status query.
func (s *Store) Discover() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read install root: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := nodeDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil || index < 1 {
			continue
		}
		if _, ok := s.records[index]; ok {
			continue
		}
		dir := s.dirFor(index)
		r := &Record{
			Index: index,
			State: types.StateUninitialized,
			Dir:   dir,
			Port:  s.basePort + index,
		}
		if fsutil.PathExists(filepath.Join(dir, ConfigFileName)) {
			r.State = types.StateInitialized
		}
		s.records[index] = r
	}
	return nil
}

// configWriteError signals an I/O failure persisting a node configuration.
type configWriteError struct {
	index int
	err   error
}

func (e configWriteError) Error() string {
	return fmt.Sprintf("write config for node %d: %v", e.index, e.err)
}

func (e configWriteError) Unwrap() error { return e.err }

// IsConfigWrite reports whether err is a configuration persistence failure.
func IsConfigWrite(err error) bool {
	_, ok := err.(configWriteError)
	return ok
}
