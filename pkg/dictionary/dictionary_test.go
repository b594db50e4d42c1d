package dictionary

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testEntries() []Entry {
	return []Entry{
		{Word: "Apple", Definition: "The fleshy fruit of a rosaceous tree."},
		{Word: "banana", Definition: "A tropical plant bearing long curved fruit."},
		{Word: "cherry", Definition: "A small round stone fruit."},
		{Word: "damson", Definition: "A small dark purple plum."},
		{Word: "elder", Definition: "A shrub bearing dark berries."},
	}
}

func TestProcess(t *testing.T) {
	raw := map[string]string{
		"zebra":  "An African wild animal. See Horse.",
		"apple":  "[OE. aeppel] The fleshy fruit of a tree.",
		"lonely": "Alone.",
		"empty":  "",
	}

	entries, skipped := Process(raw)
	require.Equal(t, 2, skipped)
	require.Equal(t, []Entry{
		{Word: "apple", Definition: "The fleshy fruit of a tree."},
		{Word: "zebra", Definition: "An African wild animal."},
	}, entries)
}

func TestSample(t *testing.T) {
	entries := testEntries()

	t.Run("fewer than requested returns all", func(t *testing.T) {
		got := Sample(entries, 10, nil)
		require.Equal(t, entries, got)
	})

	t.Run("negative returns all", func(t *testing.T) {
		require.Len(t, Sample(entries, -1, nil), len(entries))
	})

	t.Run("without replacement", func(t *testing.T) {
		got := Sample(entries, 3, rand.New(rand.NewPCG(1, 2)))
		require.Len(t, got, 3)
		seen := make(map[string]bool)
		for _, e := range got {
			require.False(t, seen[e.Word], "duplicate entry %q", e.Word)
			seen[e.Word] = true
			require.Contains(t, entries, e)
		}
	})

	t.Run("seeded is deterministic", func(t *testing.T) {
		a := Sample(entries, 2, rand.New(rand.NewPCG(7, 7)))
		b := Sample(entries, 2, rand.New(rand.NewPCG(7, 7)))
		require.Equal(t, a, b)
	})

	t.Run("input is not reordered", func(t *testing.T) {
		before := testEntries()
		_ = Sample(entries, 2, rand.New(rand.NewPCG(3, 4)))
		require.Equal(t, before, entries)
	})
}

func TestWordsAndDefinitions(t *testing.T) {
	entries := testEntries()
	words := Words(entries)
	require.Equal(t, []string{"apple", "banana", "cherry", "damson", "elder"}, words)

	defs := Definitions(entries)
	require.Len(t, defs, len(entries))
	require.Equal(t, "A small round stone fruit.", defs[2])
}

func TestWriteAndLoadEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.json")
	entries := testEntries()

	require.NoError(t, WriteEntries(path, entries))

	loaded, err := LoadEntries(path)
	require.NoError(t, err)
	require.Equal(t, entries, loaded)

	// Overwriting replaces the whole file.
	require.NoError(t, WriteEntries(path, entries[:1]))
	loaded, err = LoadEntries(path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
}

func TestLoadRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cat": "A small animal.", "dog": "A loyal animal."}`), 0o644))

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	require.Equal(t, "A loyal animal.", raw["dog"])

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[1, 2`), 0o644))
	_, err = LoadRaw(bad)
	require.Error(t, err)

	_, err = LoadRaw(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("loads entries", func(t *testing.T) {
		path := filepath.Join(dir, "full.json")
		require.NoError(t, WriteEntries(path, testEntries()))
		got, err := FileSource{Path: path}.Load(ctx)
		require.NoError(t, err)
		require.Len(t, got, 5)
	})

	t.Run("empty corpus", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, WriteEntries(path, []Entry{}))
		_, err := FileSource{Path: path}.Load(ctx)
		require.True(t, errors.Is(err, ErrEmptyCorpus))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := FileSource{Path: filepath.Join(dir, "full.json")}.Load(cctx)
		require.ErrorIs(t, err, context.Canceled)
	})
}
