// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package dpram models the dual-port RAM shared with the coprocessor: one
// 32-bit control register with set/clear-mask write semantics and the frame
// window both sides read and write.
package dpram
