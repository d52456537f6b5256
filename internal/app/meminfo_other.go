//go:build !linux

package app

// totalMemoryBytes is unknown off Linux; callers fall back to the low tier.
func totalMemoryBytes() int64 {
	return 0
}
