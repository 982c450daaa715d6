// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime tuning, metrics and debug introspection for the
// warplink daemon.
//
// Provides:
//   - Config loaded from YAML with validation
//   - ConfigStore of runtime-tunable interface settings with reload listeners
//   - MetricsRegistry of published counters
//   - DebugProbes for live state such as the control register value
package control
