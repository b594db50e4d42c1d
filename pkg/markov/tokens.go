package markov

// Unit is the atomic element of a sequence: a single character or a single
// whitespace-delimited word.
type Unit interface {
	~rune | ~string
}

// Tokenizer is an interface that defines the contract for splitting training
// text into units and for turning generated units back into text. This allows
// the core builder and generator logic to be independent of the unit
// granularity.
type Tokenizer[U Unit] interface {
	// Units splits text into units.
	Units(text string) []U
	// Join concatenates units into text. Join of a window of Order units is
	// the key under which that state is stored.
	Join(units []U) string
	// Finish applies final formatting to a generated string, such as
	// capitalisation or a sentence terminator.
	Finish(text string) string
}
