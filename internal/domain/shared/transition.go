package shared

// TransitionTable is an explicit finite-state-machine table: each key lists the
// statuses reachable from it in one step. A status with no entry, or an empty
// entry, is terminal.
type TransitionTable[S ~string] map[S][]S

// Allows reports whether from -> to is an edge of the table.
func (t TransitionTable[S]) Allows(from, to S) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Targets returns the statuses reachable from from.
func (t TransitionTable[S]) Targets(from S) []S {
	return t[from]
}

// Sources returns every status that can reach to in one step.
func (t TransitionTable[S]) Sources(to S) []S {
	var result []S
	for from, targets := range t {
		for _, s := range targets {
			if s == to {
				result = append(result, from)
				break
			}
		}
	}
	return result
}

// IsTerminal reports whether s has no outgoing edges.
func (t TransitionTable[S]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}
