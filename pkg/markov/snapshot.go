package markov

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidSnapshot is returned when a snapshot violates a table invariant.
var ErrInvalidSnapshot = errors.New("markov: invalid snapshot")

// Snapshot is the serializable representation of a Table: its order, its
// transitions and its start states, with every unit written as text. It is
// the payload a background builder returns for adoption and the format used
// for JSON export and import.
type Snapshot struct {
	Order       int                 `json:"order"`
	Transitions map[string][]string `json:"transitions"`
	StartStates []string            `json:"startStates"`
}

// Snapshot returns a copy of the table's contents that shares no memory with
// the table.
func (t *Table[U]) Snapshot() Snapshot {
	s := Snapshot{
		Order:       t.order,
		Transitions: make(map[string][]string, len(t.transitions)),
		StartStates: t.StartStates(),
	}
	one := make([]U, 1)
	for state, next := range t.transitions {
		units := make([]string, len(next))
		for i, u := range next {
			one[0] = u
			units[i] = t.tokenizer.Join(one)
		}
		s.Transitions[state] = units
	}
	return s
}

// TableFromSnapshot rebuilds a table from s, checking that every state is
// exactly Order units wide and every successor list holds single units.
func TableFromSnapshot[U Unit](s Snapshot, tok Tokenizer[U]) (*Table[U], error) {
	t, err := newTable(s.Order, tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	for _, state := range s.StartStates {
		units := tok.Units(state)
		if len(units) != s.Order {
			return nil, fmt.Errorf("%w: start state %q has %d units, want %d", ErrInvalidSnapshot, state, len(units), s.Order)
		}
		t.starts = append(t.starts, units)
	}

	for state, next := range s.Transitions {
		if n := len(tok.Units(state)); n != s.Order {
			return nil, fmt.Errorf("%w: state %q has %d units, want %d", ErrInvalidSnapshot, state, n, s.Order)
		}
		if len(next) == 0 {
			return nil, fmt.Errorf("%w: state %q has no successors", ErrInvalidSnapshot, state)
		}
		units := make([]U, len(next))
		for i, text := range next {
			u := tok.Units(text)
			if len(u) != 1 {
				return nil, fmt.Errorf("%w: successor %q of state %q is not a single unit", ErrInvalidSnapshot, text, state)
			}
			units[i] = u[0]
		}
		t.transitions[tok.Join(tok.Units(state))] = units
	}
	return t, nil
}

// ExportSnapshot serializes a snapshot as indented JSON and writes it to w.
// This is useful for backups or for shipping a prebuilt model.
func ExportSnapshot(w io.Writer, s Snapshot) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

// ImportSnapshot reads a JSON snapshot from r. The snapshot is validated when
// it is turned into a table.
func ImportSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode json snapshot: %w", err)
	}
	return s, nil
}
