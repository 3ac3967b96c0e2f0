package slicesext

import "slices"

// IsSubset reports whether all elements of needles are present in haystack.
func IsSubset[T comparable](needles, haystack []T) bool {
	for _, n := range needles {
		if !slices.Contains(haystack, n) {
			return false
		}
	}
	return true
}
