// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tap bridges the card's network interface to the host network
// stack through a kernel TAP device.
package tap
