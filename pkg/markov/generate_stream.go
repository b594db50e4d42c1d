package markov

import (
	"context"
	"errors"
	"log/slog"
)

// GenerateStream generates count sequences in a separate goroutine and returns
// a read-only channel of the finished strings. A count of zero or less keeps
// generating until the context is cancelled. The channel is closed once
// generation is complete or the context is cancelled.
//
// Requests that can never succeed (bad bounds, no data, unmatched prefix) are
// rejected before the goroutine starts. A sequence that exhausts its attempts
// is still sent, as the longest walk found.
func (c *Chain[U]) GenerateStream(ctx context.Context, count int, opts ...GenerateOption) (<-chan string, error) {
	req, err := c.prepare(opts)
	if err != nil {
		return nil, err
	}

	out := make(chan string)

	go func() {
		defer close(out)

		for i := 0; count <= 0 || i < count; i++ {
			text, err := c.generate(ctx, req)
			if err != nil && !errors.Is(err, ErrGenerationExhausted) {
				if ctx.Err() == nil {
					c.logger.ErrorContext(ctx, "Generation stream failed", slog.Any("error", err))
				}
				return
			}
			select {
			case <-ctx.Done():
				c.logger.DebugContext(ctx, "Generation stream cancelled by context",
					slog.Int("generated", i),
				)
				return
			case out <- text:
			}
		}
	}()

	return out, nil
}
