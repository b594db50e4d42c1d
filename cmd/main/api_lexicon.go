package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/CTAG07/Lexicogenesis/pkg/lexicon"
	"github.com/CTAG07/Lexicogenesis/pkg/markov"
)

// maxCount caps how many items a single request may ask for.
const maxCount = 100

// LexiconAPI holds the dependencies for the generation API handlers.
type LexiconAPI struct {
	baseCtx context.Context
	lex     *lexicon.Coordinator
	store   *dictionary.Store
	source  lexicon.CorpusSource
	logger  *slog.Logger
}

// NewLexiconAPI creates a new instance of the LexiconAPI. Upgrades triggered
// through the API run under baseCtx rather than the request's context, so they
// outlive the request.
func NewLexiconAPI(baseCtx context.Context, lex *lexicon.Coordinator, store *dictionary.Store, source lexicon.CorpusSource, logger *slog.Logger) *LexiconAPI {
	return &LexiconAPI{
		baseCtx: baseCtx,
		lex:     lex,
		store:   store,
		source:  source,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routing for the generation and model endpoints.
func (a *LexiconAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/words", requireScope(scopeLexiconRead, a.handleWords))
	mux.HandleFunc("/api/definitions", requireScope(scopeLexiconRead, a.handleDefinitions))
	mux.HandleFunc("/api/entries", requireScope(scopeLexiconRead, a.handleEntries))
	mux.HandleFunc("/api/search", requireScope(scopeLexiconRead, a.handleSearch))
	mux.HandleFunc("/api/suggest", requireScope(scopeLexiconRead, a.handleSuggest))
	mux.HandleFunc("/api/lookup", requireScope(scopeLexiconRead, a.handleLookup))
	mux.HandleFunc("/api/models/status", requireScope(scopeLexiconRead, a.handleStatus))
	mux.HandleFunc("/api/models/upgrade", requireScope(scopeLexiconWrite, a.handleUpgrade))
	mux.HandleFunc("/api/models/export", requireScope(scopeLexiconRead, a.handleExport))
}

// handleWords generates novel words.
func (a *LexiconAPI) handleWords(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	count, err := queryInt(r, "count", 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	minLength, err := queryInt(r, "min", lexicon.EntryMinLength)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxLength, err := queryInt(r, "max", lexicon.EntryMaxLength)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := []markov.GenerateOption{markov.WithMinLength(minLength), markov.WithMaxLength(maxLength)}
	if prefix := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("prefix"))); prefix != "" {
		opts = append(opts, markov.WithPrefix(prefix))
	}

	// A stream with a count of zero never ends.
	count = max(count, 1)
	stream, err := a.lex.Chars().GenerateStream(r.Context(), count, opts...)
	if err != nil {
		a.respondWithGenerationError(w, r, err)
		return
	}

	words := make([]string, 0, count)
	for word := range stream {
		words = append(words, word)
	}
	if err = r.Context().Err(); err != nil {
		a.respondWithGenerationError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"words": words})
}

// handleDefinitions generates definitions.
func (a *LexiconAPI) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	count, err := queryInt(r, "count", 1)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	maxWords, err := queryInt(r, "max_words", lexicon.EntryMaxWords)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	definitions := make([]string, 0, count)
	for i := 0; i < count; i++ {
		definitions = append(definitions, a.lex.Define(r.Context(), maxWords))
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"definitions": definitions})
}

// handleEntries generates word and definition pairs.
func (a *LexiconAPI) handleEntries(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	count, err := queryInt(r, "count", lexicon.DefaultBatchSize)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.lex.Batch(r.Context(), count)
	if err != nil {
		a.respondWithGenerationError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]lexicon.Entry{"entries": entries})
}

// handleSearch generates entries whose words start with a prefix.
func (a *LexiconAPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	count, err := queryInt(r, "count", lexicon.DefaultBatchSize)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.lex.Search(r.Context(), r.URL.Query().Get("prefix"), count)
	if err != nil {
		a.respondWithGenerationError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]lexicon.Entry{"entries": entries})
}

// handleSuggest lists real dictionary words starting with a prefix.
func (a *LexiconAPI) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	prefix := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("prefix")))
	if prefix == "" {
		respondWithError(w, http.StatusBadRequest, "A prefix is required")
		return
	}
	words, err := a.store.Suggest(r.Context(), prefix, dictionary.DefaultSuggestLimit)
	if err != nil {
		a.logger.Error("Failed to query suggestions", "prefix", prefix, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string][]string{"suggestions": words})
}

// handleLookup returns the real dictionary entry for a word, so a client can
// tell an invented word from one that already exists.
func (a *LexiconAPI) handleLookup(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	word := strings.TrimSpace(r.URL.Query().Get("word"))
	if word == "" {
		respondWithError(w, http.StatusBadRequest, "A word is required")
		return
	}
	entry, err := a.store.Lookup(r.Context(), word)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondWithError(w, http.StatusNotFound, fmt.Sprintf("%q is not in the dictionary", word))
			return
		}
		a.logger.Error("Failed to look up word", "word", word, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// handleStatus reports the active models and the last upgrade.
func (a *LexiconAPI) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	respondWithJSON(w, http.StatusOK, a.lex.Status())
}

// handleUpgrade starts a model upgrade from the configured corpus source.
func (a *LexiconAPI) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	done := a.lex.Upgrade(a.baseCtx, a.source)
	select {
	case err := <-done:
		// Only an upgrade that never started reports this quickly.
		if errors.Is(err, lexicon.ErrUpgradeInProgress) {
			respondWithError(w, http.StatusConflict, "An upgrade is already in progress")
			return
		}
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Upgrade failed: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "Upgrade complete"})
	default:
		a.logger.Info("Model upgrade requested via API")
		respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Upgrade started"})
	}
}

// handleExport writes the active character model as a JSON snapshot.
func (a *LexiconAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="char_model.json"`)
	if err := markov.ExportSnapshot(w, a.lex.Chars().Table().Snapshot()); err != nil {
		a.logger.Error("Failed to export character model", "error", err)
	}
}

// respondWithGenerationError maps generation errors to status codes: caller
// mistakes are 400s and a model without data is a 503.
func (a *LexiconAPI) respondWithGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, markov.ErrInvalidRequest),
		errors.Is(err, markov.ErrPrefixNotFound),
		errors.Is(err, lexicon.ErrPrefixTooShort):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, markov.ErrInsufficientData):
		respondWithError(w, http.StatusServiceUnavailable, "Not enough data to generate yet")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.logger.Debug("Generation abandoned by client", "path", r.URL.Path)
	default:
		a.logger.Error("Generation failed", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
	}
}

// allowMethod rejects requests with any method other than method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// queryInt reads a positive integer query parameter, falling back to def
// when it is absent. Counts are capped at maxCount.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s parameter: %q", name, raw)
	}
	if name == "count" && n > maxCount {
		return 0, fmt.Errorf("invalid count parameter: at most %d allowed", maxCount)
	}
	return n, nil
}
