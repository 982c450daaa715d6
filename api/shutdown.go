// File: api/shutdown.go
// Package api defines unified graceful shutdown contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// GracefulShutdown is implemented by components that own hardware or
// goroutines.
type GracefulShutdown interface {
	// Shutdown stops all internal services and releases their resources.
	// The component cannot be started again afterwards.
	Shutdown() error
}
