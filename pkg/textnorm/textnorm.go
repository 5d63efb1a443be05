// Package textnorm canonicalizes free-text intake answers and provides the
// two matching primitives rules rely on: substring containment for
// multi-word phrases and word-boundary matching for single tokens.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctRepeatRe = regexp.MustCompile(`([!?.,;:]){2,}`)
)

// Normalize lower-cases the input, collapses internal whitespace, strips the
// ends, and collapses runs of repeated punctuation. Empty input yields the
// empty string; Normalize never fails and is idempotent.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = punctRepeatRe.ReplaceAllString(s, "$1")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ContainsPhrase reports whether the multi-word phrase occurs as a substring
// of text. Both sides are expected to be normalized already.
func ContainsPhrase(text, phrase string) bool {
	if text == "" || phrase == "" {
		return false
	}
	return strings.Contains(text, phrase)
}

// wordPattern builds a word-boundary pattern for a single token so that
// "art" does not match inside "heart".
func wordPattern(word string) (*regexp.Regexp, error) {
	quoted := regexp.QuoteMeta(word)
	hasWordChar := false
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			hasWordChar = true
			break
		}
	}
	if hasWordChar {
		quoted = `\b` + quoted + `\b`
	}
	return regexp.Compile(quoted)
}
