package config

import "sync/atomic"

// Runtime exposes the current threshold set to pipeline components.
// Readers take a cheap immutable snapshot per call, so an operator can
// swap thresholds while batches are in flight without a rebuild.
type Runtime struct {
	current atomic.Pointer[Thresholds]
}

// NewRuntime seeds the store with an initial threshold set.
func NewRuntime(t Thresholds) *Runtime {
	r := &Runtime{}
	r.current.Store(&t)
	return r
}

// Snapshot returns the threshold set active right now.
func (r *Runtime) Snapshot() Thresholds {
	return *r.current.Load()
}

// Apply replaces the active threshold set for all subsequent calls.
// In-flight items keep the snapshot they started with.
func (r *Runtime) Apply(t Thresholds) {
	r.current.Store(&t)
}
