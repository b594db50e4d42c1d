package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultSuggestLimit is how many words Suggest returns when no limit is given.
const DefaultSuggestLimit = 5

// SetupSchema initializes the dictionary table in the provided database.
// It is idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const (
		schemaEntries = `
CREATE TABLE IF NOT EXISTS dictionary_entries (
    word TEXT PRIMARY KEY,
    definition TEXT NOT NULL
);
`
		schemaWordIndex = `
CREATE INDEX IF NOT EXISTS idx_dictionary_entries_word_nocase ON dictionary_entries(word COLLATE NOCASE);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaEntries); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if _, err = tx.Exec(schemaWordIndex); err != nil {
		return fmt.Errorf("could not create word index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store is a SQLite-backed dictionary. It holds the database connection and
// prepared SQL statements for efficient database interaction, and it is a
// corpus source for the model upgrade.
type Store struct {
	db            *sql.DB
	stmtUpsert    *sql.Stmt
	stmtAll       *sql.Stmt
	stmtSample    *sql.Stmt
	stmtSuggest   *sql.Stmt
	stmtCount     *sql.Stmt
	stmtGetByWord *sql.Stmt
	logger        *slog.Logger
}

// NewStore creates and returns a new Store. SetupSchema must have been run on
// db. It pre-compiles all necessary SQL statements, returning an error if any
// preparation fails.
func NewStore(db *sql.DB) (*Store, error) {
	stmtUpsert, err := db.Prepare(`INSERT INTO dictionary_entries (word, definition) VALUES (?, ?) ON CONFLICT(word) DO UPDATE SET definition = excluded.definition;`)
	if err != nil {
		return nil, err
	}

	stmtAll, err := db.Prepare(`SELECT word, definition FROM dictionary_entries ORDER BY word;`)
	if err != nil {
		return nil, err
	}

	stmtSample, err := db.Prepare(`SELECT word, definition FROM dictionary_entries ORDER BY RANDOM() LIMIT ?;`)
	if err != nil {
		return nil, err
	}

	stmtSuggest, err := db.Prepare(`SELECT word FROM dictionary_entries WHERE word LIKE ? ESCAPE '\' ORDER BY word COLLATE NOCASE LIMIT ?;`)
	if err != nil {
		return nil, err
	}

	stmtCount, err := db.Prepare(`SELECT COUNT(*) FROM dictionary_entries;`)
	if err != nil {
		return nil, err
	}

	stmtGetByWord, err := db.Prepare(`SELECT word, definition FROM dictionary_entries WHERE word = ? COLLATE NOCASE LIMIT 1;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:            db,
		stmtUpsert:    stmtUpsert,
		stmtAll:       stmtAll,
		stmtSample:    stmtSample,
		stmtSuggest:   stmtSuggest,
		stmtCount:     stmtCount,
		stmtGetByWord: stmtGetByWord,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtUpsert.Close()
	_ = s.stmtAll.Close()
	_ = s.stmtSample.Close()
	_ = s.stmtSuggest.Close()
	_ = s.stmtCount.Close()
	_ = s.stmtGetByWord.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// InsertEntries inserts entries, replacing the definition of words already
// present. The entire operation is performed within a single transaction.
func (s *Store) InsertEntries(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for insert: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtUpsert := tx.StmtContext(ctx, s.stmtUpsert)
	for _, e := range entries {
		if _, err = stmtUpsert.ExecContext(ctx, e.Word, e.Definition); err != nil {
			return fmt.Errorf("failed to insert entry '%s': %w", e.Word, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit entries: %w", err)
	}

	s.logger.InfoContext(ctx, "Dictionary entries imported",
		slog.Int("entries", len(entries)),
	)
	return nil
}

// Load returns every entry ordered by word. An empty dictionary is an error,
// since nothing can be trained from it.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	entries, err := s.queryEntries(ctx, s.stmtAll)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCorpus
	}
	return entries, nil
}

// Sample returns up to n entries in random order.
func (s *Store) Sample(ctx context.Context, n int) ([]Entry, error) {
	return s.queryEntries(ctx, s.stmtSample, n)
}

// Lookup returns the entry for word, matched case-insensitively. The error is
// sql.ErrNoRows when the word is unknown.
func (s *Store) Lookup(ctx context.Context, word string) (Entry, error) {
	var e Entry
	err := s.stmtGetByWord.QueryRowContext(ctx, word).Scan(&e.Word, &e.Definition)
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Suggest returns up to limit dictionary words starting with prefix,
// case-insensitively, in alphabetical order. A limit below 1 means
// DefaultSuggestLimit.
func (s *Store) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit < 1 {
		limit = DefaultSuggestLimit
	}
	rows, err := s.stmtSuggest.QueryContext(ctx, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	words := make([]string, 0, limit)
	for rows.Next() {
		var word string
		if err = rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, word)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return words, nil
}

// Count returns the number of entries in the dictionary.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.stmtCount.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) queryEntries(ctx context.Context, stmt *sql.Stmt, args ...any) ([]Entry, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err = rows.Scan(&e.Word, &e.Definition); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// escapeLike escapes the LIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
