// Package lexicon serves invented dictionary entries: novel words from a
// character-level model paired with definitions from a word-level model.
//
// A Coordinator starts on a small "lite" corpus so it can answer immediately,
// and upgrades itself to the full corpus in the background. The character
// model for the full corpus is built by a worker goroutine on a private copy
// of the corpus and adopted with a single atomic pointer store, so callers
// never observe a partially built model:
//
//	c, err := lexicon.New(lite, lexicon.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	done := c.Upgrade(ctx, dictionary.FileSource{Path: "markov_db.json"})
//	entry, err := c.NewEntry(ctx) // served by the lite models for now
//	...
//	if err := <-done; err != nil {
//		logger.Warn("still on the lite model", slog.Any("error", err))
//	}
//
// Watch connects the coordinator to a corpus file, re-running Upgrade
// whenever the file is rewritten.
package lexicon
