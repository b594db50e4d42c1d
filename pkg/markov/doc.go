/*
Package markov provides small, fixed-order Markov chain models that learn from
a list of strings and generate novel ones.

A Table records, for every window of Order units seen in the training corpus,
every unit that followed it (duplicates kept, so sampling uniformly from the
list is sampling by observed frequency), plus the opening window of every
entry. A Chain walks a Table to produce bounded, optionally prefixed output.

Units are either runes (CharModel, for inventing pronounceable words) or
whitespace-separated words (WordModel, for sentence-like definitions). Both
share the same generic builder and generator; a Tokenizer decides how text is
split into units and how output is finished.

Tables are immutable once built, so a model may be used from any number of
goroutines. Snapshot is the serializable form of a Table and is what a
background builder hands back when a larger model is ready.
*/
package markov
