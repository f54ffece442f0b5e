package hostcheck

import "fmt"

// insufficientMemoryError signals that host memory is below the preflight
// threshold. Fatal in strict mode: every node would degrade or crash.
type insufficientMemoryError struct{ gotGB, minGB int }

func (e insufficientMemoryError) Error() string {
	return fmt.Sprintf("insufficient memory: %d GB available, %d GB required", e.gotGB, e.minGB)
}

// IsInsufficientMemory reports whether err is a memory preflight failure.
func IsInsufficientMemory(err error) bool {
	_, ok := err.(insufficientMemoryError)
	return ok
}

type insufficientDiskError struct{ gotGB, minGB int }

func (e insufficientDiskError) Error() string {
	return fmt.Sprintf("insufficient disk: %d GB available, %d GB required", e.gotGB, e.minGB)
}

// IsInsufficientDisk reports whether err is a disk preflight failure.
func IsInsufficientDisk(err error) bool {
	_, ok := err.(insufficientDiskError)
	return ok
}

// portInUseError is always fatal: a bound port makes node start-up fail
// deterministically later.
type portInUseError struct{ port int }

func (e portInUseError) Error() string {
	return fmt.Sprintf("port %d is already in use", e.port)
}

// IsPortInUse reports whether err is a port preflight failure.
func IsPortInUse(err error) bool {
	_, ok := err.(portInUseError)
	return ok
}
