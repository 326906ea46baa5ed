// Package util holds small generic helpers shared across items and
// commands that don't warrant their own package.
package util

// Ref returns a pointer to a copy of input, for building pointer-typed
// struct fields (e.g. optional limits) from a literal or expression in
// one line.
func Ref[k any](input k) *k {
	return &input
}

func DerefOr[k any](input *k, def k) k {
	if input == nil {
		return def
	}
	return *input
}
