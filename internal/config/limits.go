package config

import "fmt"

// Limits bounds what a caller may request for timeout_s and memory_mb
// (spec.md §4.8's override ▷ problem default ▷ system default chain), the
// same shape as the teacher's CoreLimits but scoped to sandbox execution
// limits instead of process core counts.
type Limits struct {
	MinTimeoutS     int `yaml:"min_timeout_s"`
	MaxTimeoutS     int `yaml:"max_timeout_s"`
	MinMemoryMB     int `yaml:"min_memory_mb"`
	MaxMemoryMB     int `yaml:"max_memory_mb"`
	MaxOverallMulti int `yaml:"max_overall_multiplier"`
	MaxConcurrent   int `yaml:"max_concurrent_submissions"`
}

// DefaultLimits returns the bounds the system enforces around the
// timeout_s=5 / memory_mb=128 system defaults (spec.md §4.8).
func DefaultLimits() Limits {
	return Limits{
		MinTimeoutS:     1,
		MaxTimeoutS:     30,
		MinMemoryMB:     32,
		MaxMemoryMB:     512,
		MaxOverallMulti: 4,
		MaxConcurrent:   8,
	}
}

// Validate rejects an inverted or non-positive bound before it can silently
// clamp every submission.
func (l Limits) Validate() error {
	if l.MinTimeoutS <= 0 || l.MaxTimeoutS < l.MinTimeoutS {
		return fmt.Errorf("config: invalid timeout bounds [%d, %d]", l.MinTimeoutS, l.MaxTimeoutS)
	}
	if l.MinMemoryMB <= 0 || l.MaxMemoryMB < l.MinMemoryMB {
		return fmt.Errorf("config: invalid memory bounds [%d, %d]", l.MinMemoryMB, l.MaxMemoryMB)
	}
	if l.MaxOverallMulti <= 0 {
		return fmt.Errorf("config: max_overall_multiplier must be positive, got %d", l.MaxOverallMulti)
	}
	if l.MaxConcurrent <= 0 {
		return fmt.Errorf("config: max_concurrent_submissions must be positive, got %d", l.MaxConcurrent)
	}
	return nil
}

// Clamp bounds a caller-requested (timeoutS, memoryMB) pair into the
// configured range. The orchestrator does not call it: RunSubmission passes
// caller overrides to the sandbox without clamping them.
func (l Limits) Clamp(timeoutS, memoryMB int) (clampedTimeoutS, clampedMemoryMB int) {
	clampedTimeoutS = clampInt(timeoutS, l.MinTimeoutS, l.MaxTimeoutS)
	clampedMemoryMB = clampInt(memoryMB, l.MinMemoryMB, l.MaxMemoryMB)
	return
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
