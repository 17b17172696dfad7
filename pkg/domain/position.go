package domain

// IndexInfo is a compound execution position inside one step's instruction
// tree: a flat command counter advanced once per visited instruction, plus
// one iteration counter per enclosing loop, outermost first.
//
// Comparing two positions reachable in the same traversal (command index
// first, then loop counters entry by entry) yields a total order consistent
// with execution order.
type IndexInfo struct {
	CommandIndex int   `json:"command_index"`
	LoopIndex    []int `json:"loop_index"`
}

// BeforeStart is the position ordered before every reachable instruction.
// Resuming from it is equivalent to a fresh run.
var BeforeStart = IndexInfo{CommandIndex: -1}

// Compare returns -1, 0 or 1 as a is ordered before, equal to, or after b.
// A shorter loop index (an instruction outside a loop) sharing its prefix
// with a longer one is ordered before it.
func (a IndexInfo) Compare(b IndexInfo) int {
	switch {
	case a.CommandIndex < b.CommandIndex:
		return -1
	case a.CommandIndex > b.CommandIndex:
		return 1
	}
	n := len(a.LoopIndex)
	if len(b.LoopIndex) < n {
		n = len(b.LoopIndex)
	}
	for i := 0; i < n; i++ {
		switch {
		case a.LoopIndex[i] < b.LoopIndex[i]:
			return -1
		case a.LoopIndex[i] > b.LoopIndex[i]:
			return 1
		}
	}
	switch {
	case len(a.LoopIndex) < len(b.LoopIndex):
		return -1
	case len(a.LoopIndex) > len(b.LoopIndex):
		return 1
	}
	return 0
}

// Less reports whether a is ordered strictly before b.
func (a IndexInfo) Less(b IndexInfo) bool { return a.Compare(b) < 0 }

// Clone returns a deep copy; the loop counter slice is not shared.
func (a IndexInfo) Clone() IndexInfo {
	c := IndexInfo{CommandIndex: a.CommandIndex}
	if len(a.LoopIndex) > 0 {
		c.LoopIndex = append([]int(nil), a.LoopIndex...)
	}
	return c
}
