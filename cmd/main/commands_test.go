package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Lexicogenesis/pkg/dictionary"
	"github.com/CTAG07/Lexicogenesis/pkg/markov"
	"github.com/stretchr/testify/require"
)

// setupCLI writes a config whose paths all live in a temp dir, plus a raw
// dictionary to parse. It returns the config path, the config and the raw
// dictionary path.
func setupCLI(t *testing.T) (string, *Config, string) {
	t.Helper()
	dir := t.TempDir()
	config := testConfig(filepath.Join(dir, "data"))

	configFile := filepath.Join(dir, "config.json")
	data, err := json.MarshalIndent(config, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configFile, data, 0o644))

	raw := map[string]string{
		"apple":  "The fleshy fruit of a rosaceous tree.",
		"banana": "A tropical plant bearing long curved fruit.",
		"cherry": "A small round stone fruit. See Plum.",
		"damson": "A small dark purple plum.",
		"x":      "Word",
	}
	rawFile := filepath.Join(dir, "dictionary.json")
	data, err = json.Marshal(raw)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(rawFile, data, 0o644))

	return configFile, config, rawFile
}

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	configFile, config, rawFile := setupCLI(t)

	_, err := execute(t, "--config", configFile, "parse", rawFile, "--lite-size", "2")
	require.NoError(t, err)

	full, err := dictionary.LoadEntries(config.Server.CorpusPath)
	require.NoError(t, err)
	require.Len(t, full, 4)
	for _, e := range full {
		require.NotEqual(t, "x", e.Word)
		require.NotContains(t, e.Definition, "See Plum")
	}

	lite, err := dictionary.LoadEntries(config.Server.LiteCorpusPath)
	require.NoError(t, err)
	require.Len(t, lite, 2)
}

func TestParseCommandMissingFile(t *testing.T) {
	configFile, _, _ := setupCLI(t)

	_, err := execute(t, "--config", configFile, "parse", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	configFile, config, rawFile := setupCLI(t)

	_, err := execute(t, "--config", configFile, "parse", rawFile)
	require.NoError(t, err)
	_, err = execute(t, "--config", configFile, "import")
	require.NoError(t, err)

	db, err := initDB(config.Server.DatabasePath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	store, err := dictionary.NewStore(db)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)

	e, err := store.Lookup(context.Background(), "cherry")
	require.NoError(t, err)
	require.Equal(t, "A small round stone fruit.", e.Definition)

	// Importing again updates rows in place.
	_, err = execute(t, "--config", configFile, "import", config.Server.CorpusPath)
	require.NoError(t, err)
	n, err = store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestGenerateCommand(t *testing.T) {
	configFile, config, rawFile := setupCLI(t)

	_, err := execute(t, "--config", configFile, "parse", rawFile)
	require.NoError(t, err)

	out, err := execute(t, "--config", configFile, "generate", "-n", "3", "--corpus", config.Server.CorpusPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		word, definition, ok := strings.Cut(line, ": ")
		require.True(t, ok, "line %q is not an entry", line)
		require.NotEmpty(t, word)
		require.NotEmpty(t, definition)
	}

	out, err = execute(t, "--config", configFile, "generate", "-n", "2", "--corpus", config.Server.CorpusPath, "--prefix", "ba")
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		require.True(t, strings.HasPrefix(strings.ToLower(line), "ba"), "line %q lacks prefix", line)
	}
}

func TestExportCommand(t *testing.T) {
	configFile, config, rawFile := setupCLI(t)

	_, err := execute(t, "--config", configFile, "parse", rawFile)
	require.NoError(t, err)

	outFile := filepath.Join(t.TempDir(), "models", "chars.json")
	_, err = execute(t, "--config", configFile, "export", "-o", outFile)
	require.NoError(t, err)

	f, err := os.Open(outFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	snap, err := markov.ImportSnapshot(f)
	require.NoError(t, err)
	require.Equal(t, config.Lexicon.CharOrder, snap.Order)
	require.Len(t, snap.StartStates, 4)

	model, err := markov.NewCharModelFromSnapshot(snap)
	require.NoError(t, err)
	word, err := model.Generate(context.Background())
	if err != nil {
		require.ErrorIs(t, err, markov.ErrGenerationExhausted)
	}
	require.NotEmpty(t, word)
}

func TestExportCommandPrunes(t *testing.T) {
	configFile, _, rawFile := setupCLI(t)

	_, err := execute(t, "--config", configFile, "parse", rawFile)
	require.NoError(t, err)

	dir := t.TempDir()
	fullFile := filepath.Join(dir, "full.json")
	prunedFile := filepath.Join(dir, "pruned.json")
	_, err = execute(t, "--config", configFile, "export", "-o", fullFile)
	require.NoError(t, err)
	_, err = execute(t, "--config", configFile, "export", "-o", prunedFile, "--min-freq", "1")
	require.NoError(t, err)

	load := func(path string) markov.Snapshot {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		snap, err := markov.ImportSnapshot(f)
		require.NoError(t, err)
		return snap
	}
	full, pruned := load(fullFile), load(prunedFile)

	// Every transition in this small corpus is seen once.
	require.NotEmpty(t, full.Transitions)
	require.Less(t, len(pruned.Transitions), len(full.Transitions))
	require.ElementsMatch(t, full.StartStates, pruned.StartStates)
}
