// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Deferred execution for the driver: a single-goroutine Worker, optionally
// pinned to one CPU, that runs receive polls outside interrupt context.
package concurrency
