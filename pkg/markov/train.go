package markov

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidOrder is returned when a table is requested with an order below 1.
var ErrInvalidOrder = errors.New("markov: order must be positive")

// Table is a fixed-order transition table. For every state (a window of Order
// consecutive units) it holds every unit observed immediately after that
// state anywhere in the corpus, duplicates retained, so a uniform pick from
// the list is a pick weighted by observed frequency. It also holds the
// opening state of every corpus entry that was long enough to have one.
//
// A Table is never modified after Build returns and is safe for concurrent
// reads.
type Table[U Unit] struct {
	order       int
	tokenizer   Tokenizer[U]
	transitions map[string][]U
	starts      [][]U
}

// Build unitizes every corpus entry with tok and records its transitions.
// Entries with fewer than order units contribute nothing. The result is
// deterministic for a given corpus and order.
func Build[U Unit](corpus []string, order int, tok Tokenizer[U]) (*Table[U], error) {
	t, err := newTable(order, tok)
	if err != nil {
		return nil, err
	}
	for _, entry := range corpus {
		t.add(tok.Units(entry))
	}
	return t, nil
}

func newTable[U Unit](order int, tok Tokenizer[U]) (*Table[U], error) {
	if order <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	return &Table[U]{
		order:       order,
		tokenizer:   tok,
		transitions: make(map[string][]U),
	}, nil
}

// add records one unitized entry. It is only called while a table is being
// built, never after it has been handed out.
func (t *Table[U]) add(units []U) {
	if len(units) < t.order {
		return
	}
	t.starts = append(t.starts, slices.Clone(units[:t.order]))

	for i := 0; i < len(units)-t.order; i++ {
		key := t.tokenizer.Join(units[i : i+t.order])
		t.transitions[key] = append(t.transitions[key], units[i+t.order])
	}
}

// Order returns the window width of the table in units.
func (t *Table[U]) Order() int {
	return t.order
}

// Tokenizer returns the tokenizer the table was built with.
func (t *Table[U]) Tokenizer() Tokenizer[U] {
	return t.tokenizer
}

// Next returns every unit observed after state, duplicates included, or nil
// if the state was never followed by anything. The returned slice must not be
// modified.
func (t *Table[U]) Next(state string) []U {
	return t.transitions[state]
}

// StartStates returns the opening state of every entry, in corpus order,
// joined with the table's tokenizer.
func (t *Table[U]) StartStates() []string {
	states := make([]string, len(t.starts))
	for i, s := range t.starts {
		states[i] = t.tokenizer.Join(s)
	}
	return states
}

// HasStarts reports whether the table has any start state, which generation
// needs.
func (t *Table[U]) HasStarts() bool {
	return len(t.starts) > 0
}

// Len returns the number of distinct states that have at least one successor.
func (t *Table[U]) Len() int {
	return len(t.transitions)
}

// startsWith returns the start states whose leading units equal prefix.
func (t *Table[U]) startsWith(prefix []U) [][]U {
	var matches [][]U
	for _, s := range t.starts {
		if len(s) >= len(prefix) && slices.Equal(s[:len(prefix)], prefix) {
			matches = append(matches, s)
		}
	}
	return matches
}
