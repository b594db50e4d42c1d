package markov

// Stats holds aggregated statistics for a single table.
type Stats struct {
	Order          int `json:"order"`
	States         int `json:"states"`          // The number of distinct states with at least one successor.
	TotalChains    int `json:"total_chains"`    // The number of unique state->unit links.
	TotalFrequency int `json:"total_frequency"` // The number of observed transitions, duplicates included.
	StartStates    int `json:"start_states"`    // The number of start states, duplicates included.
	UniqueStarts   int `json:"unique_starts"`   // The number of distinct start states.
	VocabSize      int `json:"vocab_size"`      // The number of distinct units seen as successors.
}

// Stats returns a snapshot of statistics for the table.
func (t *Table[U]) Stats() Stats {
	vocab := make(map[U]struct{})
	var totalChains, totalFrequency int
	for _, next := range t.transitions {
		seen := make(map[U]struct{}, len(next))
		for _, u := range next {
			seen[u] = struct{}{}
			vocab[u] = struct{}{}
		}
		totalChains += len(seen)
		totalFrequency += len(next)
	}

	uniqueStarts := make(map[string]struct{})
	for _, s := range t.starts {
		uniqueStarts[t.tokenizer.Join(s)] = struct{}{}
	}

	return Stats{
		Order:          t.order,
		States:         len(t.transitions),
		TotalChains:    totalChains,
		TotalFrequency: totalFrequency,
		StartStates:    len(t.starts),
		UniqueStarts:   len(uniqueStarts),
		VocabSize:      len(vocab),
	}
}
