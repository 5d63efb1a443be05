package textnorm

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher holds a preprocessed keyword list: multi-word phrases are matched
// by substring containment, single tokens by a compiled word-boundary
// pattern. Keywords are normalized once at construction.
type Matcher struct {
	entries []matchEntry
}

type matchEntry struct {
	keyword string
	re      *regexp.Regexp // nil for multi-word phrases
}

// NewMatcher compiles the keyword set. A keyword that fails to compile is a
// configuration error.
func NewMatcher(keywords []string) (*Matcher, error) {
	m := &Matcher{}
	for _, kw := range keywords {
		norm := Normalize(kw)
		if norm == "" {
			continue
		}
		e := matchEntry{keyword: norm}
		if !strings.Contains(norm, " ") {
			re, err := wordPattern(norm)
			if err != nil {
				return nil, fmt.Errorf("failed to compile keyword %q: %w", kw, err)
			}
			e.re = re
		}
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// MustMatcher is NewMatcher for statically declared keyword tables.
func MustMatcher(keywords ...string) *Matcher {
	m, err := NewMatcher(keywords)
	if err != nil {
		panic(err)
	}
	return m
}

// Keywords returns the normalized keyword list in declaration order.
func (m *Matcher) Keywords() []string {
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.keyword)
	}
	return out
}

func (e matchEntry) matches(text string) bool {
	if e.re != nil {
		return e.re.MatchString(text)
	}
	return ContainsPhrase(text, e.keyword)
}

// Match returns every keyword that occurs in the (already normalized) text,
// in declaration order.
func (m *Matcher) Match(text string) []string {
	if text == "" {
		return nil
	}
	var matched []string
	for _, e := range m.entries {
		if e.matches(text) {
			matched = append(matched, e.keyword)
		}
	}
	return matched
}

// MatchAny returns the first matching keyword, if any.
func (m *Matcher) MatchAny(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, e := range m.entries {
		if e.matches(text) {
			return e.keyword, true
		}
	}
	return "", false
}
