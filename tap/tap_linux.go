//go:build linux
// +build linux

// File: tap/tap_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const cloneDevice = "/dev/net/tun"

// Device is an attached TAP interface.
type Device struct {
	*os.File
	name string
}

// Open attaches to (creating if needed) the TAP interface name. Frames are
// raw ethernet without the packet information header.
func Open(name string) (*Device, error) {
	fd, err := unix.Open(cloneDevice, unix.O_RDWR|unix.O_CLOEXEC|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cloneDevice, err)
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("tap %q: %w", name, err)
	}
	ifr.SetUint16(unix.IFF_TAP | unix.IFF_NO_PI)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("TUNSETIFF %q: %w", name, err)
	}
	// Non-blocking descriptors join the runtime poller, so Close unblocks Read.
	return &Device{File: os.NewFile(uintptr(fd), cloneDevice), name: ifr.Name()}, nil
}

// Name returns the kernel interface name.
func (d *Device) Name() string { return d.name }
