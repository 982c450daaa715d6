// Package api
// Author: momentics
//
// Live introspection of a running driver.

package api

// Debug exposes named probes evaluated on demand.
type Debug interface {
	// DumpState evaluates every registered probe.
	DumpState() map[string]any

	// RegisterProbe adds or replaces the probe called name.
	RegisterProbe(name string, fn func() any)
}
