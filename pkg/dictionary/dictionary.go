package dictionary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
)

// DefaultLiteSize is how many entries the lite corpus holds. It is enough for
// readable output while keeping start-up training instant.
const DefaultLiteSize = 500

// ErrEmptyCorpus is returned when a corpus source yields no entries.
var ErrEmptyCorpus = errors.New("dictionary: corpus is empty")

// Entry is one processed dictionary record.
type Entry struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

// Process cleans every definition in raw and keeps the entries whose cleaned
// definition has more than one word. The result is sorted by word. skipped
// counts the dropped entries.
func Process(raw map[string]string) (entries []Entry, skipped int) {
	entries = make([]Entry, 0, len(raw))
	for word, definition := range raw {
		cleaned := CleanDefinition(definition)
		if len(strings.Fields(cleaned)) > 1 {
			entries = append(entries, Entry{Word: word, Definition: cleaned})
		} else {
			skipped++
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Word < entries[j].Word
	})
	return entries, skipped
}

// Sample returns n entries chosen uniformly without replacement, or a copy of
// all entries when there are no more than n. A nil rng uses the global source.
func Sample(entries []Entry, n int, rng *rand.Rand) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	if n < 0 || len(out) <= n {
		return out
	}

	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	// Partial Fisher-Yates: the first n slots end up holding the sample.
	for i := 0; i < n; i++ {
		j := i + intN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

// Words returns the lower-cased word of every entry, the character model's
// training corpus.
func Words(entries []Entry) []string {
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = strings.ToLower(e.Word)
	}
	return words
}

// Definitions returns the definition of every entry, the word model's
// training corpus.
func Definitions(entries []Entry) []string {
	defs := make([]string, len(entries))
	for i, e := range entries {
		defs[i] = e.Definition
	}
	return defs
}

// LoadRaw reads an unprocessed dictionary: a JSON object mapping each word to
// its definition.
func LoadRaw(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	var raw map[string]string
	if err = json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary %s: %w", path, err)
	}
	return raw, nil
}

// LoadEntries reads a processed corpus: a JSON array of entries.
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	var entries []Entry
	if err = json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	return entries, nil
}

// WriteEntries writes entries as an indented JSON array. The file is replaced
// atomically, so a reader never sees a partial corpus.
func WriteEntries(path string, entries []Entry) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		return fmt.Errorf("failed to encode corpus: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write corpus %s: %w", path, err)
	}
	return nil
}

// FileSource loads a processed JSON corpus from disk.
type FileSource struct {
	Path string
}

// Load reads the corpus file. An empty corpus is an error.
func (s FileSource) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := LoadEntries(s.Path)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, s.Path)
	}
	return entries, nil
}
