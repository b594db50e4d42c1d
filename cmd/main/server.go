package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/CTAG07/Lexicogenesis/pkg/lexicon"
	"github.com/CTAG07/Lexicogenesis/pkg/markov"
)

// Server holds the long-lived dependencies of one serve cycle.
type Server struct {
	config     *Config
	db         *sql.DB
	logger     *slog.Logger
	store      *dictionary.Store
	lex        *lexicon.Coordinator
	source     lexicon.CorpusSource
	authAPI    *AuthAPI
	lexiconAPI *LexiconAPI
	serverAPI  *ServerAPI
	apiMux     *http.ServeMux
}

// NewServer opens the dictionary store, builds the lite models and registers
// the API routes. ctx bounds background work started on behalf of requests,
// such as upgrades.
func NewServer(ctx context.Context, config *Config, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	store, err := dictionary.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("error creating dictionary store: %w", err)
	}
	store.SetLogger(logger)

	lite, err := loadLite(ctx, config, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	lex, err := newCoordinator(config.Lexicon, lite, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to build lite models: %w", err)
	}
	if err = adoptPrebuilt(lex, config.Lexicon.PrebuiltModelPath, logger); err != nil {
		store.Close()
		return nil, err
	}

	var source lexicon.CorpusSource = dictionary.FileSource{Path: config.Server.CorpusPath}
	if config.Lexicon.UpgradeSource == upgradeSourceDatabase {
		source = store
	}

	server := &Server{
		config:     config,
		db:         db,
		logger:     logger,
		store:      store,
		lex:        lex,
		source:     source,
		authAPI:    NewAuthAPI(db, logger),
		lexiconAPI: NewLexiconAPI(ctx, lex, store, source, logger),
		serverAPI:  NewServerAPI(config, actionChan, logger),
		apiMux:     http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.authAPI.RegisterRoutes(apiMux)
	server.lexiconAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Every api function passes through authentication first, except the
	// health check, which stays open for things like docker.
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(apiMux))
	return server, nil
}

// Close releases the store's prepared statements. The database itself is
// owned by the caller.
func (s *Server) Close() {
	s.store.Close()
}

// newCoordinator builds a coordinator over lite with the configured model settings.
func newCoordinator(cfg *LexiconConfig, lite []dictionary.Entry, logger *slog.Logger) (*lexicon.Coordinator, error) {
	opts := []lexicon.Option{
		lexicon.WithLogger(logger),
		lexicon.WithCharOrder(cfg.CharOrder),
		lexicon.WithWordOrder(cfg.WordOrder),
	}
	if cfg.Seed != 0 {
		opts = append(opts, lexicon.WithSeed(cfg.Seed))
	}
	if cfg.DefinitionTerminator != "" {
		opts = append(opts, lexicon.WithTokenizerOptions(markov.WithEOC(cfg.DefinitionTerminator)))
	}
	return lexicon.New(lite, opts...)
}

// adoptPrebuilt swaps in the exported character model at path, if one is
// configured. A missing file is only a warning: the lite model keeps serving
// until the first upgrade.
func adoptPrebuilt(lex *lexicon.Coordinator, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Prebuilt character model not found, keeping the lite model", "path", path)
			return nil
		}
		return fmt.Errorf("failed to open prebuilt model: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	snapshot, err := markov.ImportSnapshot(f)
	if err != nil {
		return fmt.Errorf("failed to read prebuilt model %s: %w", path, err)
	}
	if err = lex.AdoptCharSnapshot(snapshot); err != nil {
		return fmt.Errorf("failed to adopt prebuilt model %s: %w", path, err)
	}
	return nil
}

// loadLite picks the corpus the lite models start from: a sample of the
// imported dictionary when there is one, otherwise the lite corpus file. With
// neither, the service starts without data and waits for an upgrade.
func loadLite(ctx context.Context, config *Config, store *dictionary.Store, logger *slog.Logger) ([]dictionary.Entry, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count dictionary entries: %w", err)
	}
	if n > 0 {
		lite, err := store.Sample(ctx, config.Lexicon.LiteSize)
		if err != nil {
			return nil, fmt.Errorf("failed to sample dictionary: %w", err)
		}
		logger.Info("Lite corpus sampled from database", "entries", len(lite), "dictionary_size", n)
		return lite, nil
	}

	lite, err := dictionary.LoadEntries(config.Server.LiteCorpusPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("No lite corpus available, starting without data", "path", config.Server.LiteCorpusPath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load lite corpus: %w", err)
	}
	logger.Info("Lite corpus loaded from file", "entries", len(lite), "path", config.Server.LiteCorpusPath)
	return lite, nil
}

// startBackground kicks off the initial upgrade and, if configured, the corpus
// watcher. Both stop with ctx.
func (s *Server) startBackground(ctx context.Context) {
	go func() {
		// The coordinator logs the outcome; the result only matters to callers that wait.
		<-s.lex.Upgrade(ctx, s.source)
	}()

	if s.config.Lexicon.WatchCorpus && s.config.Lexicon.UpgradeSource == upgradeSourceFile {
		go func() {
			if err := lexicon.Watch(ctx, s.lex, s.config.Server.CorpusPath); err != nil {
				s.logger.Error("Corpus watcher stopped", "error", err)
			}
		}()
	}
}
