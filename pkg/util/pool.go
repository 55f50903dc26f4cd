package util

import "runtime"

// GetOptimalPoolSize returns the pool size used for CPU-bound parallel work.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// The 2x factor keeps goroutines runnable while others are blocked inside
// CGO parser calls; the bounds keep weak machines parallel and strong
// machines from over-provisioning parser memory.
//
// Used for both the parser pool (parsers per language) and the scan worker
// pool. The two MUST agree, or scan workers can block waiting for parsers.
func GetOptimalPoolSize() int {
	size := runtime.NumCPU() * 2
	if size < 4 {
		size = 4
	}
	if size > 32 {
		size = 32
	}
	return size
}

// GetOptimalPoolSizeWithOverride returns pool size with optional override.
//
// If override > 0, uses the override value (for testing/tuning).
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
