// Package pool
// Author: momentics <momentics@gmail.com>
//
// Bounded, reusable frame buffers. Receive polling draws from a FramePool so
// a slow network stack exhausts the pool instead of the heap.
package pool
