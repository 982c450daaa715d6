//go:build linux
// +build linux

// File: uio/device_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// UIO device: mmap of the control region and epoll-driven interrupt wait.

package uio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/warplink/dpram"
)

// Device is an opened UIO card.
type Device struct {
	fd   int
	mem  []byte
	dev  *dpram.Device
	log  *slog.Logger
	path string

	epfd int
	// wake interrupts a blocked WaitInterrupt on cancel or Close.
	wake int

	// waiters hold the read side while blocked; Close takes the write side
	// before releasing descriptors.
	waiters sync.RWMutex
	closed  atomic.Bool
	count   atomic.Uint32
}

// Open maps the control region of cfg.Path and prepares interrupt delivery.
func Open(cfg Config) (*Device, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.MapSize
	if size <= 0 {
		var err error
		if size, err = mapSize(cfg.Path, cfg.MapIndex); err != nil {
			return nil, err
		}
	}

	fd, err := unix.Open(cfg.Path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}
	// UIO selects map N by an offset of N pages.
	off := int64(cfg.MapIndex) * int64(unix.Getpagesize())
	mem, err := unix.Mmap(fd, off, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap %s map%d: %w", cfg.Path, cfg.MapIndex, err)
	}

	d, err := newDevice(fd, mem, cfg, logger)
	if err != nil {
		unix.Munmap(mem)
		unix.Close(fd)
		return nil, err
	}
	d.log.Info("device mapped", "size", size, "register", cfg.RegisterOffset, "window", cfg.WindowOffset)
	return d, nil
}

// newDevice wires an already mapped region and interrupt descriptor.
func newDevice(fd int, mem []byte, cfg Config, logger *slog.Logger) (*Device, error) {
	reg, err := dpram.NewMappedRegister(mem, cfg.RegisterOffset)
	if err != nil {
		return nil, err
	}
	win, err := dpram.MapWindow(mem, cfg.WindowOffset, cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wake, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd: %w", err)
	}
	for _, watch := range []int{fd, wake} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(watch)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, watch, &ev); err != nil {
			unix.Close(wake)
			unix.Close(epfd)
			return nil, fmt.Errorf("epoll ctl add: %w", err)
		}
	}

	return &Device{
		fd:   fd,
		mem:  mem,
		dev:  &dpram.Device{Reg: reg, Win: win},
		log:  logger.With("component", "uio", "path", cfg.Path),
		path: cfg.Path,
		epfd: epfd,
		wake: wake,
	}, nil
}

// Device returns the register/window pair backed by the mapping.
func (d *Device) Device() *dpram.Device { return d.dev }

// Count returns the interrupt count reported by the last wait.
func (d *Device) Count() uint32 { return d.count.Load() }

// EnableInterrupt unmasks the interrupt line. UIO masks it again after
// each delivery.
func (d *Device) EnableInterrupt() error {
	if d.closed.Load() {
		return ErrClosed
	}
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], 1)
	if _, err := unix.Write(d.fd, b[:]); err != nil {
		return fmt.Errorf("enable interrupt: %w", err)
	}
	return nil
}

// WaitInterrupt blocks until the card interrupts, ctx ends or the device is
// closed. It returns the total interrupt count.
func (d *Device) WaitInterrupt(ctx context.Context) (uint32, error) {
	d.waiters.RLock()
	defer d.waiters.RUnlock()
	if d.closed.Load() {
		return 0, ErrClosed
	}
	stop := context.AfterFunc(ctx, d.kick)
	defer stop()

	var events [2]unix.EpollEvent
	for {
		n, err := unix.EpollWait(d.epfd, events[:], -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("epoll wait: %w", err)
		}
		for i := 0; i < n; i++ {
			switch int(events[i].Fd) {
			case d.wake:
				d.drainWake()
				if d.closed.Load() {
					return 0, ErrClosed
				}
				if err := ctx.Err(); err != nil {
					return 0, err
				}
			case d.fd:
				var b [4]byte
				if _, err := unix.Read(d.fd, b[:]); err != nil {
					if err == unix.EAGAIN || err == unix.EINTR {
						continue
					}
					return 0, fmt.Errorf("read interrupt: %w", err)
				}
				c := binary.NativeEndian.Uint32(b[:])
				d.count.Store(c)
				return c, nil
			}
		}
	}
}

func (d *Device) kick() {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], 1)
	unix.Write(d.wake, b[:])
}

func (d *Device) drainWake() {
	var b [8]byte
	unix.Read(d.wake, b[:])
}

// Close wakes any waiter, then unmaps the region and releases descriptors.
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.kick()
	d.waiters.Lock()
	defer d.waiters.Unlock()

	var firstErr error
	if d.mem != nil {
		if err := unix.Munmap(d.mem); err != nil {
			firstErr = err
		}
		d.mem = nil
	}
	for _, fd := range []int{d.epfd, d.wake, d.fd} {
		if err := unix.Close(fd); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.log.Info("device closed")
	return firstErr
}

// mapSize reads /sys/class/uio/<dev>/maps/map<index>/size.
func mapSize(path string, index int) (int, error) {
	p := filepath.Join(sysfsRoot, filepath.Base(path), "maps", "map"+strconv.Itoa(index), "size")
	raw, err := os.ReadFile(p)
	if err != nil {
		return 0, fmt.Errorf("map size: %w", err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("map size %s: %w", p, err)
	}
	return int(v), nil
}

var sysfsRoot = "/sys/class/uio"
