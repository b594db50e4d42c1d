package markov

import (
	"go/build"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode"
)

// seeded returns a ChainOption with a fixed random source so tests are
// reproducible.
func seeded(seed uint64) ChainOption {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// setupCharModel trains a CharModel for testing, failing the test on error.
func setupCharModel(t *testing.T, words []string, opts ...ChainOption) *CharModel {
	t.Helper()
	m, err := NewCharModel(words, opts...)
	if err != nil {
		t.Fatalf("NewCharModel() error = %v", err)
	}
	return m
}

// setupWordModel trains a WordModel for testing, failing the test on error.
func setupWordModel(t *testing.T, sentences []string, opts ...ChainOption) *WordModel {
	t.Helper()
	m, err := NewWordModel(sentences, nil, opts...)
	if err != nil {
		t.Fatalf("NewWordModel() error = %v", err)
	}
	return m
}

var testWords = []string{
	"apple", "apply", "ample", "amber", "banana", "bandana", "cabana", "cater",
	"catalog", "candle", "canter", "carpet", "garden", "gardener", "harden", "warden",
}

var (
	benchmarkWords     []string
	benchmarkSentences []string
	corpusOnce         sync.Once
)

// createBenchmarkCorpus reads Go source files to create corpora for
// benchmarking: identifiers stand in for dictionary words and source lines
// for definitions.
func createBenchmarkCorpus() ([]string, []string) {
	corpusOnce.Do(func() {
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		seen := make(map[string]struct{})
		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkWords = testWords
				benchmarkSentences = []string{"this is a fallback corpus for benchmarking.", "it is not very long but will prevent a crash."}
				return
			}
			for _, line := range strings.Split(string(content), "\n") {
				line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "//"))
				if len(strings.Fields(line)) > 3 {
					benchmarkSentences = append(benchmarkSentences, line)
				}
				for _, word := range strings.FieldsFunc(line, func(r rune) bool { return !unicode.IsLetter(r) }) {
					word = strings.ToLower(word)
					if _, ok := seen[word]; !ok && len(word) > 3 {
						seen[word] = struct{}{}
						benchmarkWords = append(benchmarkWords, word)
					}
				}
			}
		}
	})
	return benchmarkWords, benchmarkSentences
}
