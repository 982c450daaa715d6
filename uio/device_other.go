//go:build !linux
// +build !linux

// File: uio/device_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package uio

import (
	"context"

	"github.com/momentics/warplink/api"
	"github.com/momentics/warplink/dpram"
)

// Device is unavailable outside Linux.
type Device struct{}

// Open always fails outside Linux.
func Open(Config) (*Device, error) { return nil, api.ErrNotSupported }

func (*Device) Device() *dpram.Device                         { return nil }
func (*Device) Count() uint32                                 { return 0 }
func (*Device) EnableInterrupt() error                        { return api.ErrNotSupported }
func (*Device) WaitInterrupt(context.Context) (uint32, error) { return 0, api.ErrNotSupported }
func (*Device) Close() error                                  { return nil }
