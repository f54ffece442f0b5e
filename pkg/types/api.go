package types

// NodeStatus summarizes one node for GET /nodes and the interactive listing.
type NodeStatus struct {
	// Node index, also the ordinal used to derive port and directory.
	// example: 1
	Index int `json:"index" example:"1"`
	// Current lifecycle state as reported by the process supervisor.
	// example: running
	State NodeState `json:"state" example:"running"`
	// TCP port assigned to the node (base port + index).
	// example: 8081
	Port int `json:"port" example:"8081"`
	// Data directory of the node.
	// example: /var/lib/gaia/node-1
	Dir string `json:"dir" example:"/var/lib/gaia/node-1"`
	// Model configuration identifier the node was initialized with.
	// example: llama-3.1-8b-instruct
	Model string `json:"model,omitempty" example:"llama-3.1-8b-instruct"`
	// Last error observed for this node, cleared on success.
	LastError string `json:"last_error,omitempty"`
}

// NodesResponse wraps the node list returned by GET /nodes.
type NodesResponse struct {
	Nodes []NodeStatus `json:"nodes"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: node index out of range
	Error string `json:"error" example:"node index out of range"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
