package rules

import "github.com/aether-health/focus-engine/pkg/focus"

// Context is the read-only bag of previously supplied fields that a rule may
// consult while evaluating its own topic. It never contains another rule's
// output: rules read patient data, not each other's results.
type Context struct {
	Age      *int
	Sex      string
	Ancestry []string

	fields map[string]FieldInput
}

// NewContext builds an evaluation context from the demographic fields.
func NewContext(age *int, sex string, ancestry []string) *Context {
	return &Context{
		Age:      age,
		Sex:      sex,
		Ancestry: ancestry,
		fields:   make(map[string]FieldInput),
	}
}

// SetField registers a parsed field under its topic. Called by the engine
// while materializing the run's inputs, before any rule evaluates.
func (c *Context) SetField(f FieldInput) {
	c.fields[f.Topic] = f
}

// Field returns the field supplied for a topic. Missing topics are "feature
// absent": the second return is false and rules contribute zero for that
// aspect.
func (c *Context) Field(topic string) (FieldInput, bool) {
	f, ok := c.fields[topic]
	return f, ok
}

// Topics returns the set of topics with supplied fields.
func (c *Context) Topics() []string {
	out := make([]string, 0, len(c.fields))
	for t := range c.fields {
		out = append(out, t)
	}
	return out
}

// Rule is one topical evaluator: a pure, total function from a field value
// and read-only context to a partial contribution vector. Implementations
// never panic and never depend on whether or when other rules ran.
type Rule interface {
	// Name identifies the rule in provenance records and metrics.
	Name() string

	// Topic names the intake field this rule consumes.
	Topic() string

	// LocalCaps declares the per-rule clamp bound for each area the rule
	// can touch. The modifier pipeline clamps to [-cap, +cap] after
	// multipliers and synergies are applied.
	LocalCaps() map[focus.Area]float64

	// Evaluate maps the field value to a contribution. Invalid shapes
	// yield an empty result with a diagnostic flag, never an error.
	Evaluate(field FieldInput, ctx *Context) Result
}
