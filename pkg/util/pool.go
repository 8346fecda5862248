package util

import "runtime"

// GetOptimalPoolSize returns the optimal pool size for CPU-bound tasks.
//
// Formula: min(max(runtime.NumCPU() * 2, 4), 32)
//
// Reasoning:
//   - Minimum 4: ensure some parallelism even on weak machines
//   - 2× CPU cores: the tree-sitter parse path blocks in CGO, so extra
//     goroutines keep cores busy during those blocks
//   - Maximum 32: caps memory on high-core machines
//
// This is used for:
//   - Parser pool size (tree-sitter parsers per grammar)
//   - Batch query workers (concurrent snapshot resolution)
func GetOptimalPoolSize() int {
	cores := runtime.NumCPU()
	poolSize := cores * 2

	if poolSize < 4 {
		poolSize = 4
	}
	if poolSize > 32 {
		poolSize = 32
	}

	return poolSize
}

// GetOptimalPoolSizeWithOverride returns pool size with optional override.
//
// If override > 0, uses override value (for testing/tuning).
// Otherwise, uses GetOptimalPoolSize().
func GetOptimalPoolSizeWithOverride(override int) int {
	if override > 0 {
		return override
	}
	return GetOptimalPoolSize()
}
