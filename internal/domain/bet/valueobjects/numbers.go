package valueobjects

import (
	"fmt"
	"sort"
)

// Numbers is an immutable set of picked lottery numbers. Values are stored
// sorted ascending; order of the input is irrelevant.
type Numbers struct {
	values []int
}

// NewNumbers validates and creates a Numbers pick. A valid pick has exactly
// pickSize values, each within [1, maxNumber], all distinct.
func NewNumbers(values []int, pickSize, maxNumber int) (Numbers, error) {
	if len(values) != pickSize {
		return Numbers{}, fmt.Errorf("must provide exactly %d numbers, got %d", pickSize, len(values))
	}

	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if v < 1 || v > maxNumber {
			return Numbers{}, fmt.Errorf("number %d out of range [1, %d]", v, maxNumber)
		}
		if seen[v] {
			return Numbers{}, fmt.Errorf("duplicate number %d", v)
		}
		seen[v] = true
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	return Numbers{values: sorted}, nil
}

// ReconstructNumbers rebuilds a Numbers value from persistence without
// re-validating against deployment parameters.
func ReconstructNumbers(values []int) Numbers {
	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)
	return Numbers{values: sorted}
}

// Values returns a copy of the picked numbers, sorted ascending.
func (n Numbers) Values() []int {
	out := make([]int, len(n.values))
	copy(out, n.values)
	return out
}

// Size returns the number of picked values.
func (n Numbers) Size() int {
	return len(n.values)
}

// IsEmpty reports whether no numbers are set.
func (n Numbers) IsEmpty() bool {
	return len(n.values) == 0
}

// Contains reports whether v is part of the pick.
func (n Numbers) Contains(v int) bool {
	i := sort.SearchInts(n.values, v)
	return i < len(n.values) && n.values[i] == v
}

// Matches returns the intersection size with another pick. The operation is
// symmetric and bounded by the smaller pick size.
func (n Numbers) Matches(other Numbers) int {
	count := 0
	for _, v := range n.values {
		if other.Contains(v) {
			count++
		}
	}
	return count
}

// Equal reports whether both picks contain the same values.
func (n Numbers) Equal(other Numbers) bool {
	if len(n.values) != len(other.values) {
		return false
	}
	for i, v := range n.values {
		if other.values[i] != v {
			return false
		}
	}
	return true
}
