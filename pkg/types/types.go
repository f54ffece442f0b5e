package types

// NodeState is the lifecycle state of one managed node.
type NodeState string

const (
	StateUninitialized NodeState = "uninitialized"
	StateInitialized   NodeState = "initialized"
	StateRunning       NodeState = "running"
	StateStopped       NodeState = "stopped"
)

// ModelChoice identifies a model configuration and where to fetch it from.
// Immutable once selected; every node provisioned in a run shares one choice.
type ModelChoice struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Label string `json:"label"`
}

// HostProfile is the resource view of the host, computed once per run and
// never persisted.
type HostProfile struct {
	MemoryGB         int
	DiskAvailGB      int
	AcceleratorCount int
	AcceleratorName  string
	CPUCores         int
}

// Advisory is a non-fatal preflight recommendation returned alongside a
// pass result, carrying the reduced node count the host can sustain.
type Advisory struct {
	MaxNodes int
	Reason   string
}
