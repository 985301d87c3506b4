package extract

import (
	"strings"

	"github.com/poiesic/curator/core"
)

// Stop words ignored when measuring query coverage
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "vs": true, "or": true,
}

// tokenize lowercases text, drops punctuation and splits on whitespace.
func tokenize(text string) []string {
	return strings.Fields(core.NormalizeText(text))
}

// contentWords returns the distinct tokens of text that are not stop words.
func contentWords(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range tokenize(text) {
		if stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// countTerm counts occurrences of a (possibly multi-word) term in tokens.
// The last word of the term matches as a prefix so simple inflections
// ("crops", "farming") count toward their stem.
func countTerm(tokens []string, term string) int {
	words := tokenize(term)
	if len(words) == 0 || len(words) > len(tokens) {
		return 0
	}
	n := 0
	last := len(words) - 1
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			tok := tokens[i+j]
			if j == last {
				if !strings.HasPrefix(tok, w) {
					match = false
					break
				}
			} else if tok != w {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n
}

// hasTerm reports whether term occurs in tokens with exact word matching.
func hasTerm(tokens []string, term string) bool {
	words := tokenize(term)
	if len(words) == 0 {
		return false
	}
	for i := 0; i+len(words) <= len(tokens); i++ {
		match := true
		for j, w := range words {
			if tokens[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// hasAny reports whether any term occurs in tokens, prefix-matching the last word.
func hasAny(tokens []string, terms ...string) bool {
	for _, t := range terms {
		if countTerm(tokens, t) > 0 {
			return true
		}
	}
	return false
}
