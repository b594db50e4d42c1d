package lexicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/CTAG07/Lexicogenesis/pkg/markov"
	"github.com/google/uuid"
)

var (
	// ErrBackgroundBuildFailed wraps every failure of an upgrade: loading the
	// corpus, training, or adopting the result. The active models are left
	// untouched when it is returned.
	ErrBackgroundBuildFailed = errors.New("lexicon: background build failed")
	// ErrUpgradeInProgress is delivered when Upgrade is called while another
	// upgrade has not finished.
	ErrUpgradeInProgress = errors.New("lexicon: upgrade already in progress")
)

// CorpusSource supplies the entries a model upgrade trains on.
// dictionary.FileSource and *dictionary.Store both implement it.
type CorpusSource interface {
	Load(ctx context.Context) ([]dictionary.Entry, error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used by the coordinator and its models. By
// default, all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCharOrder sets the order of the character model.
func WithCharOrder(order int) Option {
	return func(c *Coordinator) { c.charOrder = order }
}

// WithWordOrder sets the order of the definition model.
func WithWordOrder(order int) Option {
	return func(c *Coordinator) { c.wordOrder = order }
}

// WithTokenizerOptions customizes how generated definitions are finished.
func WithTokenizerOptions(opts ...markov.Option) Option {
	return func(c *Coordinator) { c.tokOpts = opts }
}

// WithSeed makes generation reproducible. Every model the coordinator builds
// gets its own source derived from seed.
func WithSeed(seed uint64) Option {
	return func(c *Coordinator) { c.seed = &seed }
}

// WithBuilder replaces the background builder used by Upgrade.
func WithBuilder(build Builder) Option {
	return func(c *Coordinator) {
		if build != nil {
			c.build = build
		}
	}
}

// Coordinator owns the active character and word models and swaps them for
// models trained on a larger corpus. All methods are safe for concurrent use.
type Coordinator struct {
	chars atomic.Pointer[markov.CharModel]
	words atomic.Pointer[markov.WordModel]

	charOrder int
	wordOrder int
	tokOpts   []markov.Option
	build     Builder
	logger    *slog.Logger

	seed    *uint64
	streams atomic.Uint64

	upgrading atomic.Bool

	mu      sync.Mutex // Guards the fields below.
	full    bool
	lastID  string
	lastAt  time.Time
	lastErr error
}

// New builds the lite models from entries and returns a coordinator serving
// them. An empty lite corpus is allowed: generation then reports
// markov.ErrInsufficientData until an upgrade succeeds.
func New(lite []dictionary.Entry, opts ...Option) (*Coordinator, error) {
	c := &Coordinator{
		charOrder: markov.DefaultCharOrder,
		wordOrder: markov.DefaultWordOrder,
		build:     BuildCharSnapshot,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	chars, err := markov.NewCharModel(dictionary.Words(lite), c.chainOptions(markov.WithOrder(c.charOrder))...)
	if err != nil {
		return nil, fmt.Errorf("failed to build lite character model: %w", err)
	}
	words, err := markov.NewWordModel(dictionary.Definitions(lite), c.tokOpts, c.chainOptions(markov.WithOrder(c.wordOrder))...)
	if err != nil {
		return nil, fmt.Errorf("failed to build lite word model: %w", err)
	}
	c.chars.Store(chars)
	c.words.Store(words)

	c.logger.Info("Lite models ready",
		slog.Int("entries", len(lite)),
		slog.Int("char_states", chars.Table().Len()),
		slog.Int("word_states", words.Table().Len()),
	)
	return c, nil
}

// chainOptions returns the options shared by every model plus extra. Each
// call draws a fresh random stream, since a seeded source must not be shared
// between models.
func (c *Coordinator) chainOptions(extra ...markov.ChainOption) []markov.ChainOption {
	opts := []markov.ChainOption{markov.WithLogger(c.logger)}
	if c.seed != nil {
		stream := c.streams.Add(1)
		opts = append(opts, markov.WithRand(rand.New(rand.NewPCG(*c.seed, stream))))
	}
	return append(opts, extra...)
}

// Chars returns the active character model. Callers that hold on to it keep
// using it even after a newer one is adopted.
func (c *Coordinator) Chars() *markov.CharModel {
	return c.chars.Load()
}

// Words returns the active definition model.
func (c *Coordinator) Words() *markov.WordModel {
	return c.words.Load()
}

// GenerateWord generates one word from the active character model.
func (c *Coordinator) GenerateWord(ctx context.Context, opts ...markov.GenerateOption) (string, error) {
	return c.chars.Load().Generate(ctx, opts...)
}

// Define generates one definition from the active word model.
func (c *Coordinator) Define(ctx context.Context, maxWords int) string {
	return c.words.Load().Define(ctx, maxWords)
}

// Upgrade retrains both models on the corpus from source without blocking
// the caller. The word model is rebuilt first; the character model is built
// by a background worker. Both are adopted once the worker replies, and
// neither if any step fails.
//
// The returned channel receives exactly one value: nil once the new models
// are active, ErrUpgradeInProgress if another upgrade is
// running, or an error wrapping ErrBackgroundBuildFailed. ctx bounds loading
// the corpus only; a build that has started runs to completion.
func (c *Coordinator) Upgrade(ctx context.Context, source CorpusSource) <-chan error {
	done := make(chan error, 1)
	if !c.upgrading.CompareAndSwap(false, true) {
		done <- ErrUpgradeInProgress
		return done
	}

	id := uuid.NewString()
	go func() {
		start := time.Now()
		err := c.upgrade(ctx, id, source)
		c.recordUpgrade(id, err)
		if err != nil {
			c.logger.WarnContext(ctx, "Model upgrade failed, keeping the active models",
				slog.String("upgrade_id", id),
				slog.Any("error", err),
			)
		} else {
			c.logger.InfoContext(ctx, "Model upgrade complete",
				slog.String("upgrade_id", id),
				slog.Duration("duration", time.Since(start)),
			)
		}
		c.upgrading.Store(false)
		done <- err
	}()
	return done
}

func (c *Coordinator) upgrade(ctx context.Context, id string, source CorpusSource) error {
	c.logger.InfoContext(ctx, "Model upgrade started", slog.String("upgrade_id", id))

	entries, err := source.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not load corpus: %w", ErrBackgroundBuildFailed, err)
	}

	words, err := markov.NewWordModel(dictionary.Definitions(entries), c.tokOpts, c.chainOptions(markov.WithOrder(c.wordOrder))...)
	if err != nil {
		return fmt.Errorf("%w: could not build word model: %w", ErrBackgroundBuildFailed, err)
	}
	if !words.Table().HasStarts() {
		return fmt.Errorf("%w: %w: no definition has %d words", ErrBackgroundBuildFailed, markov.ErrInsufficientData, c.wordOrder)
	}

	// Words returns a new slice, so the worker never shares memory with entries.
	reply := startWorker(c.build, BuildRequest{Entries: dictionary.Words(entries), Order: c.charOrder})
	resp := <-reply
	if resp.Err != nil {
		return fmt.Errorf("%w: %w", ErrBackgroundBuildFailed, resp.Err)
	}

	chars, err := markov.NewCharModelFromSnapshot(resp.Snapshot, c.chainOptions()...)
	if err != nil {
		return fmt.Errorf("%w: could not adopt character model: %w", ErrBackgroundBuildFailed, err)
	}

	// Both models are adopted together, and only once both have been built.
	c.words.Store(words)
	c.chars.Store(chars)
	c.logger.DebugContext(ctx, "Full models adopted",
		slog.String("upgrade_id", id),
		slog.Int("char_states", chars.Table().Len()),
		slog.Int("word_states", words.Table().Len()),
		slog.Int("entries", len(entries)),
	)
	return nil
}

// AdoptCharSnapshot replaces the active character model with one built
// elsewhere, such as a snapshot written by the export command. The word model
// and the upgrade status are left alone.
func (c *Coordinator) AdoptCharSnapshot(s markov.Snapshot) error {
	chars, err := markov.NewCharModelFromSnapshot(s, c.chainOptions()...)
	if err != nil {
		return err
	}
	if !chars.Table().HasStarts() {
		return fmt.Errorf("%w: snapshot has no start states", markov.ErrInsufficientData)
	}
	c.chars.Store(chars)
	c.logger.Info("Prebuilt character model adopted",
		slog.Int("order", chars.Table().Order()),
		slog.Int("states", chars.Table().Len()),
	)
	return nil
}

func (c *Coordinator) recordUpgrade(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID = id
	c.lastAt = time.Now()
	c.lastErr = err
	if err == nil {
		c.full = true
	}
}

// Status describes the coordinator's models and its most recent upgrade.
type Status struct {
	FullModel     bool         `json:"full_model"`
	Upgrading     bool         `json:"upgrading"`
	LastUpgradeID string       `json:"last_upgrade_id,omitempty"`
	LastUpgradeAt *time.Time   `json:"last_upgrade_at,omitempty"`
	LastError     string       `json:"last_error,omitempty"`
	Chars         markov.Stats `json:"chars"`
	Words         markov.Stats `json:"words"`
}

// Status returns a snapshot of the coordinator's state.
func (c *Coordinator) Status() Status {
	s := Status{
		Upgrading: c.upgrading.Load(),
		Chars:     c.chars.Load().Table().Stats(),
		Words:     c.words.Load().Table().Stats(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s.FullModel = c.full
	s.LastUpgradeID = c.lastID
	if !c.lastAt.IsZero() {
		at := c.lastAt
		s.LastUpgradeAt = &at
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}
