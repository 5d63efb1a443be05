package rules

import (
	"fmt"

	"github.com/aether-health/focus-engine/pkg/focus"
)

// Contribution is a partial score vector produced by one rule: a signed
// delta per focus area.
type Contribution map[focus.Area]float64

// Clone returns an independent copy.
func (c Contribution) Clone() Contribution {
	out := make(Contribution, len(c))
	for a, v := range c {
		out[a] = v
	}
	return out
}

// Scale multiplies every delta in place and returns the receiver.
func (c Contribution) Scale(factor float64) Contribution {
	for a := range c {
		c[a] *= factor
	}
	return c
}

// Add merges other into the receiver.
func (c Contribution) Add(other Contribution) {
	for a, v := range other {
		c[a] += v
	}
}

// Validate rejects contributions naming an undeclared focus area. Rule and
// synergy constructors call this so that configuration errors fail closed
// at declaration time rather than mid-run.
func (c Contribution) Validate() error {
	for a := range c {
		if !a.Valid() {
			return fmt.Errorf("undeclared focus area %q in contribution", a)
		}
	}
	return nil
}

// Diagnostic flag values recorded on results. Flags are informational;
// the safety interceptor additionally treats crisis-category flags as
// escalation triggers.
const (
	FlagInvalidShape   = "validation_warning:invalid_shape"
	FlagMissingContext = "validation_warning:missing_context"
)

// Detail is an optional explainability entry attached to a result: which
// sub-label of the rule fired, the matched text, and its sub-contribution.
type Detail struct {
	Label       string
	MatchedText string
	Scores      Contribution
}

// Result is the output of one rule evaluation. A zero-value Result is a
// valid "no contribution" answer.
type Result struct {
	Contribution Contribution
	Flags        []string
	Details      []Detail
}

// Empty returns a zero-contribution result carrying the given diagnostic
// flags. Rules return this for invalid field shapes instead of erroring.
func Empty(flags ...string) Result {
	return Result{Flags: flags}
}

// IsZero reports whether the result carries no contribution at all.
func (r Result) IsZero() bool {
	for _, v := range r.Contribution {
		if v != 0 {
			return false
		}
	}
	return true
}
