package rules

import (
	"fmt"
	"math"

	"github.com/aether-health/focus-engine/pkg/focus"
)

// Band is one half-open interval [Min, Max) of a numeric-threshold table.
// Use math.Inf for unbounded edges.
type Band struct {
	Label   string
	Min     float64
	Max     float64
	Weights Contribution
}

// NumericThresholdRule maps a numeric reading onto a banded weight table.
// Unit-suffixed string readings ("5.7 %", "98 mg/dL") are accepted: the
// numeric prefix is extracted before banding.
type NumericThresholdRule struct {
	name  string
	topic string
	bands []Band
	caps  map[focus.Area]float64
}

// NewNumericThresholdRule builds a numeric rule. Bands are kept in declared
// order and the first containing band wins; rows naming undeclared focus
// areas fail closed at construction.
func NewNumericThresholdRule(name, topic string, bands []Band, caps map[focus.Area]float64) (*NumericThresholdRule, error) {
	for _, b := range bands {
		if err := b.Weights.Validate(); err != nil {
			return nil, fmt.Errorf("rule %q, band %q: %w", name, b.Label, err)
		}
		if b.Min >= b.Max {
			return nil, fmt.Errorf("rule %q, band %q: empty interval [%g, %g)", name, b.Label, b.Min, b.Max)
		}
	}
	if err := validateCaps(name, caps); err != nil {
		return nil, err
	}
	copied := make([]Band, len(bands))
	copy(copied, bands)
	return &NumericThresholdRule{name: name, topic: topic, bands: copied, caps: caps}, nil
}

func (r *NumericThresholdRule) Name() string  { return r.name }
func (r *NumericThresholdRule) Topic() string { return r.topic }

func (r *NumericThresholdRule) LocalCaps() map[focus.Area]float64 { return r.caps }

// Evaluate bands the reading. Non-numeric text with no extractable prefix is
// a validation warning; a reading outside every band contributes zero.
func (r *NumericThresholdRule) Evaluate(field FieldInput, ctx *Context) Result {
	var value float64
	switch field.Kind {
	case KindNumeric:
		value = field.Number
	case KindText, KindCategorical:
		v, ok := ParseNumericPrefix(field.Raw)
		if !ok {
			return Empty(FlagInvalidShape)
		}
		value = v
	default:
		return Empty(FlagInvalidShape)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Empty(FlagInvalidShape)
	}

	for _, b := range r.bands {
		if value >= b.Min && value < b.Max {
			return Result{
				Contribution: b.Weights.Clone(),
				Details: []Detail{{
					Label:       b.Label,
					MatchedText: field.Snippet(),
					Scores:      b.Weights.Clone(),
				}},
			}
		}
	}
	return Result{}
}
