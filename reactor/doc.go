// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the packet I/O reactor: a network interface that
// moves ethernet frames over the shared window. Receive is driven by the
// packet-arrived interrupt with a periodic timer as fallback; both sources
// schedule one budgeted poll at a time on a deferred worker.
package reactor
