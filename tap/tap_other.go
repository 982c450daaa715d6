//go:build !linux
// +build !linux

// File: tap/tap_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tap

import "github.com/momentics/warplink/api"

// Device is unavailable outside Linux.
type Device struct{}

// Open always fails outside Linux.
func Open(string) (*Device, error) { return nil, api.ErrNotSupported }

func (*Device) Read([]byte) (int, error)  { return 0, api.ErrNotSupported }
func (*Device) Write([]byte) (int, error) { return 0, api.ErrNotSupported }
func (*Device) Close() error              { return nil }
func (*Device) Name() string              { return "" }
