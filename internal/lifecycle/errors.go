package lifecycle

import "fmt"

// configFetchError signals the model configuration could not be retrieved.
// Node-scoped: the caller skips this node and continues the batch.
type configFetchError struct {
	url string
	err error
}

func (e configFetchError) Error() string {
	return fmt.Sprintf("fetch config %s: %v", e.url, e.err)
}

func (e configFetchError) Unwrap() error { return e.err }

// IsConfigFetch reports whether err is a configuration retrieval failure.
func IsConfigFetch(err error) bool {
	_, ok := err.(configFetchError)
	return ok
}

// invalidConfigError signals a fetched configuration that does not parse as
// structured data. A malformed remote configuration must never reach the
// node binary.
type invalidConfigError struct {
	url string
	err error
}

func (e invalidConfigError) Error() string {
	return fmt.Sprintf("invalid config from %s: %v", e.url, e.err)
}

func (e invalidConfigError) Unwrap() error { return e.err }

// IsInvalidConfig reports whether err indicates a malformed configuration.
func IsInvalidConfig(err error) bool {
	_, ok := err.(invalidConfigError)
	return ok
}

// startFailedError signals the node process could not be spawned.
type startFailedError struct {
	index int
	err   error
}

func (e startFailedError) Error() string {
	return fmt.Sprintf("start node %d: %v", e.index, e.err)
}

func (e startFailedError) Unwrap() error { return e.err }

// IsStartFailed reports whether err is a spawn failure.
func IsStartFailed(err error) bool {
	_, ok := err.(startFailedError)
	return ok
}

// transitionError signals an operation applied to a node in the wrong state.
type transitionError struct {
	index int
	op    string
	state string
}

func (e transitionError) Error() string {
	return fmt.Sprintf("cannot %s node %d in state %s", e.op, e.index, e.state)
}

// IsInvalidTransition reports whether err is a state precondition failure.
func IsInvalidTransition(err error) bool {
	_, ok := err.(transitionError)
	return ok
}
