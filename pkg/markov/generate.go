package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
)

var (
	// ErrInsufficientData is returned when a table has no start states,
	// because the corpus was empty or every entry was shorter than the order.
	ErrInsufficientData = errors.New("markov: insufficient training data")
	// ErrGenerationExhausted is returned when no attempt reached the minimum
	// length within the attempt budget. The longest attempt is still returned
	// alongside it.
	ErrGenerationExhausted = errors.New("markov: generation exhausted")
	// ErrInvalidRequest is returned for contradictory length bounds.
	ErrInvalidRequest = errors.New("markov: invalid generation request")
	// ErrPrefixNotFound is returned when a prefix shorter than the order does
	// not begin any start state.
	ErrPrefixNotFound = errors.New("markov: no start state matches prefix")
)

// defaultMaxAttempts caps the length-floor retry loop.
const defaultMaxAttempts = 100

// generateOptions Is used by the generate functions to configure default options.
type generateOptions struct {
	minLength   int
	maxLength   int
	prefix      string
	maxAttempts int
}

// GenerateOption is a function that configures generation parameters. It's used
// as a variadic argument in generation functions like Generate and GenerateStream.
type GenerateOption func(*generateOptions)

// WithMinLength sets the minimum number of units in a result. Shorter walks
// are discarded and retried.
func WithMinLength(n int) GenerateOption {
	return func(o *generateOptions) { o.minLength = n }
}

// WithMaxLength sets the maximum number of units in a result. The walk may
// stop earlier at a state that was never followed by anything.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithPrefix steers generation. A prefix of at least Order units is continued
// from its last Order units; a shorter one selects a start state that begins
// with it.
func WithPrefix(prefix string) GenerateOption {
	return func(o *generateOptions) { o.prefix = prefix }
}

// WithMaxAttempts sets how many walks are tried before giving up on the
// minimum length. Values below 1 are treated as 1.
func WithMaxAttempts(n int) GenerateOption {
	return func(o *generateOptions) { o.maxAttempts = n }
}

func (o *generateOptions) validate() error {
	if o.maxLength <= 0 {
		return fmt.Errorf("%w: max length %d", ErrInvalidRequest, o.maxLength)
	}
	if o.minLength > o.maxLength {
		return fmt.Errorf("%w: min length %d exceeds max length %d", ErrInvalidRequest, o.minLength, o.maxLength)
	}
	if o.maxAttempts < 1 {
		o.maxAttempts = 1
	}
	return nil
}

// Chain generates sequences from a Table by random walk. It holds no mutable
// state other than an optional seeded random source, which is guarded, so a
// Chain is safe for concurrent use.
type Chain[U Unit] struct {
	table    *Table[U]
	defaults generateOptions
	rng      *lockedRand
	logger   *slog.Logger
}

// ChainOption configures a Chain or one of the models built on it.
type ChainOption func(*chainConfig)

type chainConfig struct {
	order  int
	rng    *rand.Rand
	logger *slog.Logger
}

// WithOrder sets the order used when a model builds its own table.
func WithOrder(order int) ChainOption {
	return func(c *chainConfig) { c.order = order }
}

// WithRand makes generation draw from r instead of the global source. A
// seeded source yields reproducible output for identical requests.
func WithRand(r *rand.Rand) ChainOption {
	return func(c *chainConfig) { c.rng = r }
}

// WithLogger sets the logger. By default, all logs are discarded.
func WithLogger(logger *slog.Logger) ChainOption {
	return func(c *chainConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newChainConfig(defaultOrder int, opts []ChainOption) chainConfig {
	cfg := chainConfig{
		order:  defaultOrder,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func newChain[U Unit](table *Table[U], defaults generateOptions, cfg chainConfig) *Chain[U] {
	c := &Chain[U]{
		table:    table,
		defaults: defaults,
		logger:   cfg.logger,
	}
	if cfg.rng != nil {
		c.rng = &lockedRand{r: cfg.rng}
	}
	return c
}

// Table returns the table the chain walks.
func (c *Chain[U]) Table() *Table[U] {
	return c.table
}

// Generate produces one sequence. It picks a seed state, walks the table
// until it reaches the maximum length or a state with no successors, and
// retries whole walks that fall short of the minimum length. The finished
// text is passed through the tokenizer's Finish.
//
// If every attempt is too short, the longest one is returned together with an
// error wrapping ErrGenerationExhausted.
func (c *Chain[U]) Generate(ctx context.Context, opts ...GenerateOption) (string, error) {
	req, err := c.prepare(opts)
	if err != nil {
		return "", err
	}
	return c.generate(ctx, req)
}

// request is a validated set of generation options with its prefix already
// unitized and matched against the start states.
type request[U Unit] struct {
	options    generateOptions
	prefix     []U
	candidates [][]U
}

// prepare checks everything that does not depend on randomness, so that a
// request which can never succeed fails before any walk is attempted.
func (c *Chain[U]) prepare(opts []GenerateOption) (request[U], error) {
	options := c.defaults
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.validate(); err != nil {
		return request[U]{}, err
	}

	t := c.table
	if !t.HasStarts() {
		return request[U]{}, ErrInsufficientData
	}

	req := request[U]{options: options, prefix: t.tokenizer.Units(options.prefix)}
	if len(req.prefix) > options.maxLength {
		return request[U]{}, fmt.Errorf("%w: prefix has %d units, max length is %d", ErrInvalidRequest, len(req.prefix), options.maxLength)
	}
	if len(req.prefix) > 0 && len(req.prefix) < t.order {
		req.candidates = t.startsWith(req.prefix)
		if len(req.candidates) == 0 {
			return request[U]{}, fmt.Errorf("%w: %q", ErrPrefixNotFound, options.prefix)
		}
	}
	return req, nil
}

// generate runs the bounded retry loop for a prepared request.
func (c *Chain[U]) generate(ctx context.Context, req request[U]) (string, error) {
	t := c.table
	options := req.options

	var best []U
	for attempt := 1; attempt <= options.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		result := c.walk(req.prefix, req.candidates, options.maxLength)
		if len(result) >= options.minLength {
			return t.tokenizer.Finish(t.tokenizer.Join(result)), nil
		}
		if len(result) > len(best) {
			best = result
		}
		c.logger.DebugContext(ctx, "Generated sequence below minimum length, retrying",
			slog.Int("attempt", attempt),
			slog.Int("generated_length", len(result)),
			slog.Int("min_length", options.minLength),
		)
	}

	c.logger.WarnContext(ctx, "Generation exhausted its attempts",
		slog.Int("max_attempts", options.maxAttempts),
		slog.Int("min_length", options.minLength),
		slog.Int("best_length", len(best)),
	)
	return t.tokenizer.Finish(t.tokenizer.Join(best)), fmt.Errorf("%w: %d attempts, none reached %d units",
		ErrGenerationExhausted, options.maxAttempts, options.minLength)
}

// walk contains the main loop for a single generation attempt.
func (c *Chain[U]) walk(prefix []U, candidates [][]U, maxLength int) []U {
	t := c.table

	var seed []U
	switch {
	case len(prefix) >= t.order: // Continue from the prefix itself
		seed = prefix
	case len(candidates) > 0:
		// The whole matching start state seeds the walk, not just the prefix,
		// so the first lookup uses a state that really occurs in the corpus.
		seed = candidates[c.intN(len(candidates))]
	default:
		seed = t.starts[c.intN(len(t.starts))]
	}
	if len(seed) > maxLength {
		seed = seed[:maxLength]
	}

	result := make([]U, len(seed), maxLength)
	copy(result, seed)

	for i := 0; i < maxLength && len(result) < maxLength && len(result) >= t.order; i++ {
		choices := t.transitions[t.tokenizer.Join(result[len(result)-t.order:])]
		if len(choices) == 0 { // Dead end in chain
			break
		}
		result = append(result, choices[c.intN(len(choices))])
	}
	return slices.Clip(result)
}

func (c *Chain[U]) intN(n int) int {
	if c.rng == nil {
		return rand.IntN(n)
	}
	return c.rng.IntN(n)
}

// lockedRand serializes access to a seeded *rand.Rand, which is not safe for
// concurrent use on its own.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
