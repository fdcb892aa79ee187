package util

// CeilDiv returns ceil(a / b) for non-negative a and positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Window returns s[lo:hi] with both bounds clamped to [0, len(s)].
// A window that starts past the end of s is empty, never an error.
func Window[T any](s []T, lo, hi int) []T {
	lo, hi = clamp(lo, 0, len(s)), clamp(hi, 0, len(s))
	if lo >= hi {
		return s[:0:0]
	}

	return s[lo:hi:hi]
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
