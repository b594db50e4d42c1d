package dictionary

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	seeReferenceRegex = regexp.MustCompile(`(?i)See [A-Z][a-z]+\.`)
	bracketRegex      = regexp.MustCompile(`\[.*?\]`)
	dashTailRegex     = regexp.MustCompile(`\s--\s.*`)
	numberingRegex    = regexp.MustCompile(`\b\d+\.\s`)
	whitespaceRegex   = regexp.MustCompile(`\s+`)
)

// CleanDefinition strips the editorial noise found in public-domain
// dictionary definitions: cross references ("See Foo."), bracketed
// etymologies, trailing "-- usage" notes, quotes and sense numbering. A short
// capitalised fragment after the last sentence (usually an attribution such
// as "Shak.") is dropped as well.
func CleanDefinition(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = seeReferenceRegex.ReplaceAllString(text, "")
	text = bracketRegex.ReplaceAllString(text, "")
	text = dashTailRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `"`, "")
	text = numberingRegex.ReplaceAllString(text, "")
	text = collapseSpace(text)

	parts := strings.Split(text, ". ")
	if len(parts) > 1 {
		last := strings.TrimSpace(parts[len(parts)-1])
		if last != "" && len(strings.Fields(last)) <= 3 && startsUpper(last) {
			text = strings.Join(parts[:len(parts)-1], ". ") + "."
		}
	}
	return collapseSpace(text)
}

func collapseSpace(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

func startsUpper(text string) bool {
	r, _ := utf8.DecodeRuneInString(text)
	return unicode.IsUpper(r)
}
