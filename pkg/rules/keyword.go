package rules

import (
	"fmt"

	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/textnorm"
)

// KeywordEntry is one labeled sub-classification of a keyword rule: a
// keyword set, the weight row it contributes when any keyword occurs, and
// optional diagnostic flags raised on a match.
type KeywordEntry struct {
	Label    string
	Keywords []string
	Weights  Contribution
	Flags    []string

	matcher *textnorm.Matcher
}

// KeywordRule classifies normalized free text (or multi-select lists)
// against a set of labeled keyword entries. Every matching entry
// contributes; a baseline row, when declared, is added once if at least one
// entry matched.
type KeywordRule struct {
	name    string
	topic   string
	entries []KeywordEntry
	base    Contribution
	caps    map[focus.Area]float64
}

// NewKeywordRule compiles the entry keyword sets and validates every weight
// row against the declared focus-area set.
func NewKeywordRule(name, topic string, entries []KeywordEntry, base Contribution, caps map[focus.Area]float64) (*KeywordRule, error) {
	compiled := make([]KeywordEntry, len(entries))
	for i, e := range entries {
		if err := e.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q, entry %q: %w", name, e.Label, err)
		}
		m, err := textnorm.NewMatcher(e.Keywords)
		if err != nil {
			return nil, fmt.Errorf("rule %q, entry %q: %w", name, e.Label, err)
		}
		e.matcher = m
		compiled[i] = e
	}
	if base != nil {
		if err := base.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q baseline: %w", name, err)
		}
	}
	if err := validateCaps(name, caps); err != nil {
		return nil, err
	}
	return &KeywordRule{name: name, topic: topic, entries: compiled, base: base, caps: caps}, nil
}

func (r *KeywordRule) Name() string  { return r.name }
func (r *KeywordRule) Topic() string { return r.topic }

func (r *KeywordRule) LocalCaps() map[focus.Area]float64 { return r.caps }

// Evaluate matches the field text against every entry. Entries are
// independent: each match adds its weight row and a detail record.
func (r *KeywordRule) Evaluate(field FieldInput, ctx *Context) Result {
	var text string
	switch field.Kind {
	case KindText, KindCategorical:
		text = field.Text
	case KindList:
		text = field.Text
	case KindStructured:
		text = field.Text
	default:
		return Empty(FlagInvalidShape)
	}
	if text == "" {
		return Result{}
	}

	res := Result{Contribution: Contribution{}}
	matchedAny := false
	for _, e := range r.entries {
		kw, ok := e.matcher.MatchAny(text)
		if !ok {
			continue
		}
		matchedAny = true
		res.Contribution.Add(e.Weights)
		res.Flags = append(res.Flags, e.Flags...)
		res.Details = append(res.Details, Detail{
			Label:       e.Label,
			MatchedText: kw,
			Scores:      e.Weights.Clone(),
		})
	}

	if !matchedAny {
		return Result{}
	}
	if r.base != nil {
		res.Contribution.Add(r.base)
		res.Details = append(res.Details, Detail{
			Label:       "baseline",
			MatchedText: field.Snippet(),
			Scores:      r.base.Clone(),
		})
	}
	return res
}
