// Package ordering assigns sortable integer keys to siblings so that
// inserts and moves usually touch a single key.
package ordering

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// Spacing is the gap left between keys after a rebalance and beyond the
// last sibling on append.
const Spacing int64 = 1024

// Between returns a key strictly between lo and hi. A nil bound is open;
// the lower edge of the domain is 0 (exclusive). ok is false when no
// integer fits.
func Between(lo, hi *int64) (key int64, ok bool) {
	var lower int64
	if lo != nil {
		lower = *lo
	}
	if hi == nil {
		if lower > math.MaxInt64-Spacing {
			return 0, false
		}
		return lower + Spacing, true
	}
	if *hi-lower < 2 {
		return 0, false
	}
	return lower + (*hi-lower)/2, true
}

// Rebalance returns n evenly spaced keys.
func Rebalance(n int) []int64 {
	keys := make([]int64, n)
	for i := range keys {
		keys[i] = int64(i+1) * Spacing
	}
	return keys
}

// InsertAt computes a key for a new sibling placed at index among keys.
// When the neighbours leave no room, rebalanced holds fresh keys for the
// whole sequence including the new slot; otherwise it is nil.
func InsertAt(keys []int64, index int) (key int64, rebalanced []int64) {
	index = max(0, min(index, len(keys)))
	var lo, hi *int64
	if index > 0 {
		lo = &keys[index-1]
	}
	if index < len(keys) {
		hi = &keys[index]
	}
	if k, ok := Between(lo, hi); ok {
		return k, nil
	}
	rebalanced = Rebalance(len(keys) + 1)
	return rebalanced[index], rebalanced
}

// Reassign returns keys for a sequence that has just been reordered, given
// each element's current key in the new display order. The longest strictly
// increasing run of existing keys is kept and the rest are placed between
// them. full is true when no such placement existed and every key was
// rebalanced.
func Reassign(keys []int64) (out []int64, full bool) {
	out = slices.Clone(keys)
	keep := increasingAnchors(keys)

	prev := int64(0)
	for i := 0; i < len(out); {
		if keep[i] {
			prev = out[i]
			i++
			continue
		}
		j := i
		for j < len(out) && !keep[j] {
			j++
		}
		m := int64(j - i)
		if j < len(out) {
			step := (out[j] - prev) / (m + 1)
			if step < 1 {
				return Rebalance(len(keys)), true
			}
			for k := int64(0); k < m; k++ {
				out[i+int(k)] = prev + step*(k+1)
			}
		} else {
			if prev > math.MaxInt64-Spacing*m {
				return Rebalance(len(keys)), true
			}
			for k := int64(0); k < m; k++ {
				out[i+int(k)] = prev + Spacing*(k+1)
			}
		}
		prev = out[j-1]
		i = j
	}
	return out, false
}

// increasingAnchors marks a longest strictly increasing subsequence of
// positive keys.
func increasingAnchors(keys []int64) []bool {
	n := len(keys)
	keep := make([]bool, n)
	length := make([]int, n)
	prev := make([]int, n)
	best := -1
	for i := range keys {
		prev[i] = -1
		if keys[i] <= 0 {
			continue
		}
		length[i] = 1
		for j := 0; j < i; j++ {
			if length[j] > 0 && keys[j] < keys[i] && length[j]+1 > length[i] {
				length[i] = length[j] + 1
				prev[i] = j
			}
		}
		if best < 0 || length[i] > length[best] {
			best = i
		}
	}
	for i := best; i >= 0; i = prev[i] {
		keep[i] = true
	}
	return keep
}

// Sortable carries what sibling ordering needs from a node.
type Sortable struct {
	Key       int64
	CreatedAt time.Time
	ID        string
}

// Compare orders by key, then creation time, then id, so equal keys still
// produce a stable, deterministic order.
func Compare(a, b Sortable) int {
	if c := cmp.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// StrictlyAscending reports whether keys are strictly increasing.
func StrictlyAscending(keys []int64) bool {
	for i := 1; i < len(keys); i++ {
		if keys[i] <= keys[i-1] {
			return false
		}
	}
	return true
}
