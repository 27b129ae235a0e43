package dialogue

import (
	"regexp"
	"strings"
)

var (
	punctRE      = regexp.MustCompile(`[^\p{L}\p{N}\s/-]+`)
	whitespaceRE = regexp.MustCompile(`\s+`)
	wordCharRE   = regexp.MustCompile(`[\p{L}\p{N}]`)
)

// normalizeText lowercases, strips punctuation (keeping the separators date
// literals need) and collapses whitespace.
func normalizeText(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = punctRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}

// shortTokens are the tiny replies that are real answers, not noise.
var shortTokens = map[string]struct{}{
	"y": {}, "n": {}, "no": {}, "ok": {}, "hi": {},
	"1": {}, "2": {}, "3": {}, "4": {}, "5": {},
}

// looksGarbled flags input that is unlikely to be real language, typically a
// failed speech transcription: no word characters at all, or a fragment too
// short to mean anything that isn't a known short answer.
func looksGarbled(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	trimmed = strings.TrimRight(trimmed, ".!? ")
	if !wordCharRE.MatchString(trimmed) {
		return true
	}
	if len([]rune(trimmed)) <= 2 {
		_, known := shortTokens[trimmed]
		return !known
	}
	return false
}

// ordinalTiers resolves 1-5 menu selections. Explicit ordinals outrank bare
// digits, digits outrank number words, so "the second one" reads as 2.
var ordinalTiers = [][]string{
	{"first", "second", "third", "fourth", "fifth"},
	{"1", "2", "3", "4", "5"},
	{"one", "two", "three", "four", "five"},
}

func extractOrdinal(norm string) (int, bool) {
	for _, tier := range ordinalTiers {
		for i, word := range tier {
			if hasToken(norm, word) {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// hasToken reports whether the normalized text contains word as a whole token.
func hasToken(text, word string) bool {
	for _, tok := range strings.Fields(text) {
		if tok == word {
			return true
		}
	}
	return false
}
