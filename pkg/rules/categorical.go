package rules

import (
	"fmt"

	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/textnorm"
)

// CategoricalRule maps a single-choice intake answer to a weight row from a
// declared table. Answers with no table entry contribute zero; they are not
// an error.
type CategoricalRule struct {
	name  string
	topic string
	table map[string]Contribution
	caps  map[focus.Area]float64
}

// NewCategoricalRule builds a categorical rule. Table keys are normalized at
// construction; any row naming an undeclared focus area fails closed here.
func NewCategoricalRule(name, topic string, table map[string]Contribution, caps map[focus.Area]float64) (*CategoricalRule, error) {
	normalized := make(map[string]Contribution, len(table))
	for answer, row := range table {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q, answer %q: %w", name, answer, err)
		}
		normalized[textnorm.Normalize(answer)] = row.Clone()
	}
	if err := validateCaps(name, caps); err != nil {
		return nil, err
	}
	return &CategoricalRule{name: name, topic: topic, table: normalized, caps: caps}, nil
}

func (r *CategoricalRule) Name() string  { return r.name }
func (r *CategoricalRule) Topic() string { return r.topic }

func (r *CategoricalRule) LocalCaps() map[focus.Area]float64 { return r.caps }

// Evaluate accepts categorical or free-text shapes; the answer is matched
// exactly after normalization.
func (r *CategoricalRule) Evaluate(field FieldInput, ctx *Context) Result {
	var answer string
	switch field.Kind {
	case KindCategorical, KindText:
		answer = field.Category
		if answer == "" {
			answer = field.Text
		}
	case KindBool:
		if field.Flag {
			answer = "yes"
		} else {
			answer = "no"
		}
	default:
		return Empty(FlagInvalidShape)
	}

	row, ok := r.table[answer]
	if !ok {
		return Result{}
	}
	return Result{
		Contribution: row.Clone(),
		Details: []Detail{{
			Label:       answer,
			MatchedText: field.Snippet(),
			Scores:      row.Clone(),
		}},
	}
}

func validateCaps(rule string, caps map[focus.Area]float64) error {
	for a, cap := range caps {
		if !a.Valid() {
			return fmt.Errorf("rule %q: undeclared focus area %q in local caps", rule, a)
		}
		if cap < 0 {
			return fmt.Errorf("rule %q: negative local cap %.2f for %q", rule, cap, a)
		}
	}
	return nil
}
