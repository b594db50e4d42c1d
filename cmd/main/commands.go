package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/CTAG07/Lexicogenesis/pkg/lexicon"
	"github.com/CTAG07/Lexicogenesis/pkg/markov"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

var (
	parseLiteSize int

	generateCount  int
	generateCorpus string
	generatePrefix string

	exportCorpus  string
	exportOut     string
	exportMinFreq int
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <dictionary.json>",
		Short: "Clean a raw dictionary into the full and lite corpus files",
		Args:  cobra.ExactArgs(1),
		RunE:  runParseCmd,
	}
	cmd.Flags().IntVar(&parseLiteSize, "lite-size", 0, "entries in the lite corpus (default: lexicon_config.lite_size)")
	return cmd
}

func runParseCmd(cmd *cobra.Command, args []string) error {
	config, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	start := time.Now()

	raw, err := dictionary.LoadRaw(args[0])
	if err != nil {
		return err
	}
	entries, skipped := dictionary.Process(raw)

	liteSize := config.Lexicon.LiteSize
	if parseLiteSize > 0 {
		liteSize = parseLiteSize
	}
	lite := dictionary.Sample(entries, liteSize, nil)

	if err = ensureDir(config.Server.CorpusPath, config.Server.LiteCorpusPath); err != nil {
		return err
	}
	if err = dictionary.WriteEntries(config.Server.CorpusPath, entries); err != nil {
		return err
	}
	if err = dictionary.WriteEntries(config.Server.LiteCorpusPath, lite); err != nil {
		return err
	}

	logger.Info("Dictionary parsed",
		"raw_entries", len(raw),
		"kept", len(entries),
		"skipped", skipped,
		"lite_entries", len(lite),
		"corpus", config.Server.CorpusPath,
		"lite_corpus", config.Server.LiteCorpusPath,
		"duration", time.Since(start),
	)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [corpus.json]",
		Short: "Load a processed corpus into the dictionary database",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runImportCmd,
	}
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	config, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	path := config.Server.CorpusPath
	if len(args) == 1 {
		path = args[0]
	}

	entries, err := dictionary.LoadEntries(path)
	if err != nil {
		return err
	}

	if err = ensureDir(config.Server.DatabasePath); err != nil {
		return err
	}
	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err = dictionary.SetupSchema(db); err != nil {
		return fmt.Errorf("failed to setup dictionary schema: %w", err)
	}

	store, err := dictionary.NewStore(db)
	if err != nil {
		return fmt.Errorf("error creating dictionary store: %w", err)
	}
	defer store.Close()
	store.SetLogger(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err = store.InsertEntries(ctx, entries); err != nil {
		return err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("Import complete", "path", path, "imported", len(entries), "dictionary_size", total)
	return nil
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print invented dictionary entries",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	cmd.Flags().IntVarP(&generateCount, "count", "n", lexicon.DefaultBatchSize, "number of entries")
	cmd.Flags().StringVar(&generateCorpus, "corpus", "", "corpus file to train on (default: server_config.lite_corpus_path)")
	cmd.Flags().StringVar(&generatePrefix, "prefix", "", "only invent words starting with this prefix")
	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	config, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	path := config.Server.LiteCorpusPath
	if generateCorpus != "" {
		path = generateCorpus
	}

	corpus, err := dictionary.LoadEntries(path)
	if err != nil {
		return err
	}
	lex, err := newCoordinator(config.Lexicon, corpus, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	var entries []lexicon.Entry
	if generatePrefix != "" {
		entries, err = lex.Search(ctx, generatePrefix, generateCount)
	} else {
		entries, err = lex.Batch(ctx, generateCount)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		_, _ = fmt.Fprintf(out, "%s: %s\n", e.Word, e.Definition)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Build the character model from a corpus and save it as JSON",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportCorpus, "corpus", "", "corpus file to train on (default: server_config.corpus_path)")
	cmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: <data_dir>/char_model.json)")
	cmd.Flags().IntVar(&exportMinFreq, "min-freq", 0, "drop transitions seen this many times or fewer")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	config, logger, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	corpusPath := config.Server.CorpusPath
	if exportCorpus != "" {
		corpusPath = exportCorpus
	}
	out := filepath.Join(config.Server.DataDir, "char_model.json")
	if exportOut != "" {
		out = exportOut
	}

	entries, err := dictionary.LoadEntries(corpusPath)
	if err != nil {
		return err
	}
	resp := lexicon.BuildCharSnapshot(lexicon.BuildRequest{Entries: dictionary.Words(entries), Order: config.Lexicon.CharOrder})
	if resp.Err != nil {
		return fmt.Errorf("failed to build character model: %w", resp.Err)
	}
	snapshot := resp.Snapshot
	if exportMinFreq > 0 {
		table, err := markov.TableFromSnapshot[rune](snapshot, markov.CharTokenizer{})
		if err != nil {
			return fmt.Errorf("failed to load character model: %w", err)
		}
		snapshot = table.Prune(exportMinFreq).Snapshot()
	}

	if err = ensureDir(out); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err = markov.ExportSnapshot(&buf, snapshot); err != nil {
		return fmt.Errorf("failed to encode character model: %w", err)
	}
	if err = atomic.WriteFile(out, &buf); err != nil {
		return fmt.Errorf("failed to write character model: %w", err)
	}

	logger.Info("Character model exported",
		"path", out,
		"order", snapshot.Order,
		"states", len(snapshot.Transitions),
		"start_states", len(snapshot.StartStates),
		"min_freq", exportMinFreq,
	)
	return nil
}

// ensureDir creates the parent directory of every path.
func ensureDir(paths ...string) error {
	for _, p := range paths {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
	}
	return nil
}
