package markov

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CharTokenizer is the Tokenizer used by CharModel. Every rune is a unit and
// finished output has its first rune upper-cased.
type CharTokenizer struct{}

// Units Returns the runes of text.
func (CharTokenizer) Units(text string) []rune {
	return []rune(text)
}

// Join Returns the runes as a string.
func (CharTokenizer) Join(units []rune) string {
	return string(units)
}

// Finish Capitalizes the first character.
func (CharTokenizer) Finish(text string) string {
	return upperFirst(text)
}

// WordTokenizer is the Tokenizer used by WordModel. It splits on runs of
// whitespace, joins with a single space, and makes sure finished output reads
// as a sentence. Its behavior can be customized with functional options.
type WordTokenizer struct {
	eoc      string
	eocRegex *regexp.Regexp
}

// Option Is a function that configures a WordTokenizer.
type Option func(*WordTokenizer)

// WithEOC Sets the terminator appended to output that does not already end
// a sentence.
// Default: "."
func WithEOC(eoc string) Option {
	return func(t *WordTokenizer) {
		t.eoc = eoc
	}
}

// WithEOCRegex sets the regex string used to decide whether output already
// ends with a sentence terminator.
// Default: `[.!?]$`
func WithEOCRegex(eocRegex string) Option {
	return func(t *WordTokenizer) {
		t.eocRegex = regexp.MustCompile(eocRegex)
	}
}

// NewWordTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewWordTokenizer(opts ...Option) *WordTokenizer {
	t := &WordTokenizer{
		eoc: ".",
		// Sentence-ending punctuation at the very end of the output.
		eocRegex: regexp.MustCompile(`[.!?]$`),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Units Returns the whitespace-separated words of text.
func (t *WordTokenizer) Units(text string) []string {
	return strings.Fields(text)
}

// Join Returns the words separated by single spaces.
func (t *WordTokenizer) Join(units []string) string {
	return strings.Join(units, " ")
}

// Finish Capitalizes the first letter and appends the configured terminator
// unless the text already ends a sentence.
func (t *WordTokenizer) Finish(text string) string {
	if text == "" {
		return text
	}
	text = upperFirst(text)
	if !t.eocRegex.MatchString(text) {
		text += t.eoc
	}
	return text
}

func upperFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 || r == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}
