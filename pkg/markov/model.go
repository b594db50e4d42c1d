package markov

import (
	"context"
	"errors"
	"log/slog"
)

const (
	// DefaultCharOrder is the order CharModel uses unless told otherwise.
	DefaultCharOrder = 3
	// DefaultWordOrder is the order WordModel uses unless told otherwise.
	DefaultWordOrder = 2
	// DefaultMaxWords bounds Define when no positive maxWords is given.
	DefaultMaxWords = 25
	// NoDataDefinition is what WordModel.Define returns for an untrained model.
	NoDataDefinition = "Not enough data to generate a definition."
)

// CharModel generates pronounceable novel words from a character-level
// chain. Requests are expressed with WithMinLength, WithMaxLength and
// WithPrefix; lengths count characters. Unless overridden a request asks for
// 5 to 30 characters.
type CharModel struct {
	*Chain[rune]
}

// NewCharModel trains a character model on words.
func NewCharModel(words []string, opts ...ChainOption) (*CharModel, error) {
	cfg := newChainConfig(DefaultCharOrder, opts)
	table, err := Build[rune](words, cfg.order, CharTokenizer{})
	if err != nil {
		return nil, err
	}
	return newCharModel(table, cfg), nil
}

// NewCharModelFromSnapshot adopts a table built elsewhere, typically by a
// background builder, without retraining.
func NewCharModelFromSnapshot(s Snapshot, opts ...ChainOption) (*CharModel, error) {
	table, err := TableFromSnapshot[rune](s, CharTokenizer{})
	if err != nil {
		return nil, err
	}
	return newCharModel(table, newChainConfig(table.Order(), opts)), nil
}

func newCharModel(table *Table[rune], cfg chainConfig) *CharModel {
	defaults := generateOptions{minLength: 5, maxLength: 30, maxAttempts: defaultMaxAttempts}
	return &CharModel{Chain: newChain(table, defaults, cfg)}
}

// WordModel generates sentence-like definitions from a word-level chain.
// It has no length floor: any walk is an acceptable definition.
type WordModel struct {
	*Chain[string]
}

// NewWordModel trains a word model on sentences. Tokenizer options such as
// WithEOC customize how definitions are finished.
func NewWordModel(sentences []string, tokOpts []Option, opts ...ChainOption) (*WordModel, error) {
	cfg := newChainConfig(DefaultWordOrder, opts)
	table, err := Build[string](sentences, cfg.order, NewWordTokenizer(tokOpts...))
	if err != nil {
		return nil, err
	}
	defaults := generateOptions{maxLength: DefaultMaxWords, maxAttempts: 1}
	return &WordModel{Chain: newChain(table, defaults, cfg)}, nil
}

// Define returns a definition of at most maxWords words. It never fails: an
// untrained model yields NoDataDefinition, and a maxWords below 1 means
// DefaultMaxWords.
func (m *WordModel) Define(ctx context.Context, maxWords int) string {
	if maxWords < 1 {
		maxWords = DefaultMaxWords
	}
	sentence, err := m.Generate(ctx, WithMaxLength(maxWords), WithMinLength(0))
	if err != nil {
		if !errors.Is(err, ErrInsufficientData) {
			m.logger.WarnContext(ctx, "Definition generation failed", slog.Any("error", err))
		}
		return NoDataDefinition
	}
	return sentence
}
