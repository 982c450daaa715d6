// File: uio/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uio

import (
	"errors"
	"log/slog"
)

// ErrClosed is returned by a device after Close.
var ErrClosed = errors.New("uio: device closed")

// Config locates the control region inside a UIO device.
type Config struct {
	Path     string
	MapIndex int
	// MapSize of zero reads the size from sysfs.
	MapSize        int
	RegisterOffset int
	WindowOffset   int
	WindowSize     int
	Logger         *slog.Logger
}
