// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package uio gives the daemon access to the card through the Linux
// userspace I/O framework: the control region is mapped from /dev/uioN and
// the card interrupt is delivered as a readable event on the same file.
package uio
