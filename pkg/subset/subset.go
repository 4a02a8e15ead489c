// Package subset computes which dimension-id combinations still need to be
// queried for observations. It is pure: no network, no storage.
package subset

import (
	"fmt"
	"strings"
)

// Mode selects how dimension lists expand into query combinations.
type Mode string

const (
	// ModeAll issues a single query using every requested dimension jointly.
	ModeAll Mode = "all"

	// ModeAny issues separate queries for every non-empty pick of one
	// dimension per supplied list, individually as well as jointly.
	ModeAny Mode = "any"
)

// UsageError reports an invalid argument combination. It fails fast, before
// any network call is made.
type UsageError struct {
	Reason string
}

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid subset usage: %s", e.Reason)
}

// Combinations returns the dimension-id tuples that must still be fetched,
// given the requested dimension lists, the combination mode, and the
// distinct tuples already present in storage.
//
// Tuples are compared to alreadyPresent as ordered sequences; two tuples of
// the same ids in different order count as different. List order is
// preserved in every emitted tuple, and no tuple is emitted twice.
func Combinations(dimensionLists [][]string, mode Mode, alreadyPresent [][]string) ([][]string, error) {
	switch mode {
	case ModeAll, ModeAny:
	default:
		return nil, &UsageError{Reason: fmt.Sprintf("unknown mode %q (want %q or %q)", mode, ModeAll, ModeAny)}
	}

	var candidates [][]string

	switch mode {
	case ModeAll:
		var joint []string
		for _, list := range dimensionLists {
			joint = append(joint, list...)
		}
		if len(joint) > 0 {
			candidates = append(candidates, joint)
		}

	case ModeAny:
		candidates = anyCombinations(dimensionLists)
	}

	present := make(map[string]bool, len(alreadyPresent))
	for _, tuple := range alreadyPresent {
		present[tupleKey(tuple)] = true
	}

	var result [][]string
	emitted := make(map[string]bool, len(candidates))
	for _, tuple := range candidates {
		key := tupleKey(tuple)
		if present[key] || emitted[key] {
			continue
		}
		emitted[key] = true
		result = append(result, tuple)
	}

	return result, nil
}

// anyCombinations expands every non-empty subset of the supplied lists,
// drawing one id from each chosen list (cartesian across lists). Subsets
// keep the original list order.
func anyCombinations(dimensionLists [][]string) [][]string {
	n := len(dimensionLists)
	if n == 0 {
		return nil
	}

	var result [][]string
	for mask := 1; mask < (1 << n); mask++ {
		var chosen [][]string
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				chosen = append(chosen, dimensionLists[i])
			}
		}
		result = append(result, cartesian(chosen)...)
	}
	return result
}

// cartesian yields one tuple per pick of a single element from each list.
func cartesian(lists [][]string) [][]string {
	for _, list := range lists {
		if len(list) == 0 {
			return nil
		}
	}

	result := [][]string{{}}
	for _, list := range lists {
		var next [][]string
		for _, prefix := range result {
			for _, id := range list {
				tuple := make([]string, len(prefix), len(prefix)+1)
				copy(tuple, prefix)
				next = append(next, append(tuple, id))
			}
		}
		result = next
	}

	// Drop the empty tuple produced when lists is empty.
	var tuples [][]string
	for _, tuple := range result {
		if len(tuple) > 0 {
			tuples = append(tuples, tuple)
		}
	}
	return tuples
}

// tupleKey builds an order-sensitive identity for a tuple.
func tupleKey(tuple []string) string {
	return strings.Join(tuple, "\x1f")
}
