package markov

// Prune returns a copy of the table without the state->unit links observed
// at most minFreq times. States left with no successors are dropped, turning
// them into dead ends. Start states are kept as they are. This is useful for
// reducing the size of an exported model by removing rare, and often noisy,
// transitions.
func (t *Table[U]) Prune(minFreq int) *Table[U] {
	pruned := &Table[U]{
		order:       t.order,
		tokenizer:   t.tokenizer,
		transitions: make(map[string][]U, len(t.transitions)),
		starts:      t.starts,
	}

	for state, next := range t.transitions {
		freq := make(map[U]int, len(next))
		for _, u := range next {
			freq[u]++
		}
		var kept []U
		for _, u := range next {
			if freq[u] > minFreq {
				kept = append(kept, u)
			}
		}
		if len(kept) > 0 {
			pruned.transitions[state] = kept
		}
	}
	return pruned
}
