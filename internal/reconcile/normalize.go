package reconcile

import "strings"

// Normalize reduces a definition text to its comparison form: line endings
// and all other whitespace runs collapse to single spaces, surrounding
// whitespace is dropped, and the text is lower-cased so keyword casing does
// not register as drift. The function is deterministic and must stay stable
// across runs; changing it would turn historical repo content into false
// conflicts.
func Normalize(definition string) string {
	return strings.ToLower(strings.Join(strings.Fields(definition), " "))
}

// definitionsEqual compares two definition texts under the normalization
// policy, applied identically to both sides.
func definitionsEqual(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
