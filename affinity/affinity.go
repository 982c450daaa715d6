// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import (
	"fmt"

	"github.com/momentics/warplink/api"
)

// SetAffinity pins the current OS thread to a given logical CPU. The caller
// must have locked its goroutine to the thread with runtime.LockOSThread.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("%w: cpu %d", api.ErrInvalidArgument, cpuID)
	}
	return setAffinityPlatform(cpuID)
}

// Allowed returns the CPUs the current thread may run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
