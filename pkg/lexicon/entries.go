package lexicon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/CTAG07/Lexicogenesis/pkg/markov"
)

const (
	// EntryMinLength and EntryMaxLength bound the length of generated words.
	EntryMinLength = 5
	EntryMaxLength = 12
	// EntryMaxWords bounds the length of generated definitions.
	EntryMaxWords = 20
	// DefaultBatchSize is how many entries Batch and Search produce when no
	// positive count is given.
	DefaultBatchSize = 15
	// MinSearchPrefix is the shortest prefix, in characters, Search accepts.
	MinSearchPrefix = 2
)

// ErrPrefixTooShort is returned by Search for prefixes under MinSearchPrefix.
var ErrPrefixTooShort = errors.New("lexicon: search prefix too short")

// Entry is an invented dictionary entry.
type Entry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

// NewEntry generates one entry from the active models.
func (c *Coordinator) NewEntry(ctx context.Context) (Entry, error) {
	return c.newEntry(ctx, "")
}

// Batch generates n entries, or DefaultBatchSize when n is below 1.
func (c *Coordinator) Batch(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		n = DefaultBatchSize
	}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := c.NewEntry(ctx)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Search generates n entries whose words begin with prefix. The prefix is
// trimmed and lower-cased first. When no word in the corpus starts with it,
// Search falls back to unprefixed entries rather than failing.
func (c *Coordinator) Search(ctx context.Context, prefix string, n int) ([]Entry, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if utf8.RuneCountInString(prefix) < MinSearchPrefix {
		return nil, fmt.Errorf("%w: %q", ErrPrefixTooShort, prefix)
	}
	if n < 1 {
		n = DefaultBatchSize
	}

	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		e, err := c.newEntry(ctx, prefix)
		if errors.Is(err, markov.ErrPrefixNotFound) {
			c.logger.DebugContext(ctx, "No word starts with the search prefix, falling back",
				slog.String("prefix", prefix),
			)
			prefix = ""
			e, err = c.newEntry(ctx, prefix)
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// newEntry pairs a word with a definition. A word that never reaches
// EntryMinLength is still used: the longest attempt is a better answer than
// none.
func (c *Coordinator) newEntry(ctx context.Context, prefix string) (Entry, error) {
	opts := []markov.GenerateOption{
		markov.WithMinLength(EntryMinLength),
		markov.WithMaxLength(max(EntryMaxLength, utf8.RuneCountInString(prefix))),
	}
	if prefix != "" {
		opts = append(opts, markov.WithPrefix(prefix))
	}

	word, err := c.GenerateWord(ctx, opts...)
	if err != nil && !errors.Is(err, markov.ErrGenerationExhausted) {
		return Entry{}, err
	}
	return Entry{
		Word:       word,
		Definition: c.Define(ctx, EntryMaxWords),
	}, nil
}
