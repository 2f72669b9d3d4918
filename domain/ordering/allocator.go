// Package ordering computes fractional order keys for siblings in the tree.
// Keys are integers with gaps; inserting between two adjacent keys bisects
// the gap until no integer room is left, at which point the whole sibling
// level is reindexed to evenly spaced keys.
package ordering

// Gap is the spacing between freshly assigned order keys. It is also the
// initial key for the first item at a level.
const Gap int64 = 1000

// Allocate computes an order key between two neighboring siblings. A nil
// neighbor means the insertion happens at the start or end of the level.
// ok is false when no integer room is left between the neighbors; the caller
// must reindex the level and retry. Exhaustion is an internal signal, never
// a user-facing failure.
func Allocate(prev, next *int64) (order int64, ok bool) {
	switch {
	case prev == nil && next == nil:
		return Gap, true

	case next == nil:
		return *prev + Gap, true

	case prev == nil:
		// Inserting at the very start: leave room below the first sibling.
		// Repeated start insertions walk the key toward zero and below;
		// negative keys sort correctly, so that is tolerated until the key
		// would no longer be strictly below its neighbor.
		order = floorDiv(*next-Gap, 2)
		if order >= *next {
			return 0, false
		}
		return order, true

	default:
		mid := floorDiv(*prev+*next, 2)
		if mid == *prev || mid == *next {
			return 0, false
		}
		return mid, true
	}
}

// Reindex assigns fresh, evenly spaced keys to every item at a level,
// preserving the given order. The result covers all siblings, not just the
// one being inserted; the caller must persist every reassigned key before
// the new item's key.
func Reindex(orderedIDs []string) map[string]int64 {
	keys := make(map[string]int64, len(orderedIDs))
	for i, id := range orderedIDs {
		keys[id] = int64(i+1) * Gap
	}
	return keys
}

// floorDiv divides by two rounding toward negative infinity, matching
// floor semantics for negative operands
func floorDiv(v, d int64) int64 {
	q := v / d
	if v%d != 0 && (v < 0) != (d < 0) {
		q--
	}
	return q
}
