package markov

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestBuild(t *testing.T) {
	table, err := Build[rune]([]string{"cat", "car", "can"}, 2, CharTokenizer{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	if got, want := table.Next("ca"), []rune{'t', 'r', 'n'}; !reflect.DeepEqual(got, want) {
		t.Errorf("Next(\"ca\") = %q, want %q", string(got), string(want))
	}
	if got, want := table.StartStates(), []string{"ca", "ca", "ca"}; !reflect.DeepEqual(got, want) {
		t.Errorf("StartStates() = %v, want %v", got, want)
	}
	if table.Len() != 1 {
		t.Errorf("expected a single state, got %d", table.Len())
	}
	if next := table.Next("at"); next != nil {
		t.Errorf("expected no successors for \"at\", got %q", string(next))
	}
}

func TestBuildKeepsDuplicates(t *testing.T) {
	table, err := Build[rune]([]string{"aab", "aab", "aac"}, 2, CharTokenizer{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if got, want := string(table.Next("aa")), "bbc"; got != want {
		t.Errorf("Next(\"aa\") = %q, want %q", got, want)
	}
}

func TestBuildSkipsShortEntries(t *testing.T) {
	table, err := Build[rune]([]string{"a", "ab", "abc", ""}, 3, CharTokenizer{})
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if got := table.StartStates(); !reflect.DeepEqual(got, []string{"abc"}) {
		t.Errorf("StartStates() = %v, want [abc]", got)
	}
	if table.Len() != 0 {
		t.Errorf("a word exactly order long has no transitions, got %d states", table.Len())
	}
}

func TestBuildProperties(t *testing.T) {
	for _, order := range []int{1, 2, 3, 4} {
		t.Run(fmt.Sprintf("Order%d", order), func(t *testing.T) {
			var corpus []string
			for _, w := range testWords {
				if utf8.RuneCountInString(w) >= order {
					corpus = append(corpus, w)
				}
			}
			table, err := Build[rune](corpus, order, CharTokenizer{})
			if err != nil {
				t.Fatalf("Build() failed: %v", err)
			}
			if got := len(table.StartStates()); got != len(corpus) {
				t.Errorf("expected one start state per entry (%d), got %d", len(corpus), got)
			}
			for state, next := range table.transitions {
				if n := utf8.RuneCountInString(state); n != order {
					t.Errorf("state %q has %d runes, want %d", state, n, order)
				}
				if len(next) == 0 {
					t.Errorf("state %q has an empty successor list", state)
				}
			}
		})
	}
}

func TestBuildWords(t *testing.T) {
	table, err := Build[string]([]string{"the cat sat.", "  the   cat ran. "}, 2, NewWordTokenizer())
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	if got := table.StartStates(); !reflect.DeepEqual(got, []string{"the cat", "the cat"}) {
		t.Errorf("StartStates() = %v", got)
	}
	if got, want := table.Next("the cat"), []string{"sat.", "ran."}; !reflect.DeepEqual(got, want) {
		t.Errorf("Next(\"the cat\") = %v, want %v", got, want)
	}
}

func TestBuildInvalidOrder(t *testing.T) {
	for _, order := range []int{0, -1} {
		if _, err := Build[rune]([]string{"abc"}, order, CharTokenizer{}); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("Build(order=%d) error = %v, want ErrInvalidOrder", order, err)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a, _ := Build[rune](testWords, 3, CharTokenizer{})
	b, _ := Build[rune](testWords, 3, CharTokenizer{})
	if !reflect.DeepEqual(a.Snapshot(), b.Snapshot()) {
		t.Error("two builds over the same corpus differ")
	}
}

func BenchmarkBuild(b *testing.B) {
	words, sentences := createBenchmarkCorpus()

	for _, order := range []int{1, 2, 3, 4, 5} {
		b.Run(fmt.Sprintf("CharOrder%d", order), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Build[rune](words, order, CharTokenizer{}); err != nil {
					b.Fatalf("Build() failed: %v", err)
				}
			}
		})
	}

	b.Run("WordOrder2", func(b *testing.B) {
		tok := NewWordTokenizer()
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := Build[string](sentences, 2, tok); err != nil {
				b.Fatalf("Build() failed: %v", err)
			}
		}
	})
}
