package tools

import "time"

const (
	DefaultTimeout = 2 * time.Minute
	MaxTimeout     = 10 * time.Minute
)

// resolveTimeout clamps a millisecond timeout from tool params.
func resolveTimeout(ms int) time.Duration {
	if ms <= 0 {
		return DefaultTimeout
	}
	return min(time.Duration(ms)*time.Millisecond, MaxTimeout)
}
