package commitment

// emptyNodes[L] is the canonical hash of an empty subtree at level L.
// Level 0 is the designated empty-leaf constant (the all-zero hash), and
// each higher level satisfies
//
//	emptyNodes[L] = combine(L, emptyNodes[L-1], emptyNodes[L-1])
//
// The table is regenerated from the recurrence at init rather than embedded,
// so it cannot drift from the combine function.
var emptyNodes = func() [TreeDepth]Hash {
	var out [TreeDepth]Hash
	for level := 1; level < TreeDepth; level++ {
		out[level] = combine(uint8(level), out[level-1], out[level-1])
	}
	return out
}()

// EmptyLeaf returns the designated empty-leaf constant, used as the fixed
// seed leaf of every fresh tree and as level-0 padding.
func EmptyLeaf() Hash {
	return emptyNodes[0]
}

// EmptyNode returns the canonical empty-subtree hash at the given level.
// Panics if level is outside [0, TreeDepth).
func EmptyNode(level int) Hash {
	return emptyNodes[level]
}
