// Package modifier adjusts raw rule contributions with contextual
// multipliers, cross-topic synergy bonuses, and per-rule clamping, in a
// fixed order: multipliers compose first, synergies add second, the local
// cap clamps last.
package modifier

import (
	"fmt"

	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/rules"
	"github.com/aether-health/focus-engine/pkg/textnorm"
)

// Applied is one provenance record of a modifier that changed a result.
type Applied struct {
	Name   string
	Kind   string // "multiplier", "synergy" or "clamp"
	Factor float64
	Areas  []focus.Area
}

// Condition gates a synergy on another supplied field. AnyOf matches the
// normalized field text against a keyword set; Equals matches the
// normalized categorical answer exactly. Exactly one of the two is set.
type Condition struct {
	Topic  string
	AnyOf  []string
	Equals string

	matcher *textnorm.Matcher
}

// Synergy is an additive cross-topic bonus. It belongs to a single owner
// topic and fires at most once per run, during the owner rule's pass, when
// the owner contributed and every condition holds.
type Synergy struct {
	Name       string
	Owner      string
	Conditions []Condition
	Bonus      rules.Contribution
}

// FrequencyStep is one rung of the frequency ladder. Steps are declared
// from least to most frequent; the highest matching rung wins.
type FrequencyStep struct {
	Label    string
	Keywords []string
	Factor   float64

	matcher *textnorm.Matcher
}

// AgeBand scales contributions for an age range [Min, Max).
type AgeBand struct {
	Label  string
	Min    int
	Max    int
	Factor float64
}

// Config declares the pipeline tables. The zero value is not usable; start
// from Default.
type Config struct {
	SeverityHighKeywords []string
	SeverityLowKeywords  []string
	SeverityHighFactor   float64
	SeverityLowFactor    float64

	Frequency []FrequencyStep
	AgeBands  []AgeBand
	Synergies []Synergy

	// DefaultLocalCap bounds areas a rule touches without declaring a cap.
	DefaultLocalCap float64
}

// Default returns the built-in pipeline tables.
func Default() Config {
	return Config{
		SeverityHighKeywords: []string{
			"severe", "severely", "extreme", "extremely", "debilitating",
			"unbearable", "terrible", "awful", "constant", "crippling",
		},
		SeverityLowKeywords: []string{
			"mild", "mildly", "slight", "slightly", "minor", "occasional",
			"a little", "a bit", "barely",
		},
		SeverityHighFactor: 1.2,
		SeverityLowFactor:  0.8,
		Frequency: []FrequencyStep{
			{Label: "rare", Keywords: []string{"rarely", "rare", "once in a while", "almost never"}, Factor: 0.25},
			{Label: "some_days", Keywords: []string{"sometimes", "some days", "occasionally", "a few times a week"}, Factor: 0.6},
			{Label: "most_days", Keywords: []string{"most days", "usually", "often", "frequently", "nearly every day"}, Factor: 0.9},
			{Label: "daily", Keywords: []string{"daily", "every day", "everyday", "all the time", "constantly"}, Factor: 1.0},
		},
		// Age contributes through the banded age rule, not a blanket
		// demographic discount, so the default bands are neutral. The
		// stage stays configurable for deployments that want scaling.
		AgeBands: []AgeBand{
			{Label: "young_adult", Min: 18, Max: 40, Factor: 1.0},
			{Label: "midlife", Min: 40, Max: 65, Factor: 1.0},
			{Label: "older_adult", Min: 65, Max: 200, Factor: 1.0},
		},
		Synergies: []Synergy{
			{
				Name:  "shift_work_short_sleep",
				Owner: "sleep_hours",
				Conditions: []Condition{
					{Topic: "occupation", AnyOf: []string{"night", "rotating", "graveyard", "shift", "nurse", "paramedic", "security", "warehouse"}},
				},
				Bonus: rules.Contribution{focus.StressAxis: 0.20, focus.Mitochondrial: 0.15, focus.Hormonal: 0.10},
			},
			{
				Name:  "alcohol_low_mood",
				Owner: "alcohol",
				Conditions: []Condition{
					{Topic: "mood", AnyOf: []string{"depressed", "depression", "hopeless", "numb", "anxious", "anxiety"}},
				},
				Bonus: rules.Contribution{focus.StressAxis: 0.15, focus.Cognitive: 0.10},
			},
			{
				Name:  "trauma_poor_sleep",
				Owner: "trauma",
				Conditions: []Condition{
					{Topic: "sleep_quality", AnyOf: []string{"poor", "terrible", "bad", "restless", "insomnia", "can't sleep", "cannot sleep"}},
				},
				Bonus: rules.Contribution{focus.StressAxis: 0.20, focus.Cognitive: 0.10},
			},
			{
				Name:  "daily_alcohol_liver_strain",
				Owner: "alcohol",
				Conditions: []Condition{
					{Topic: "alcohol", Equals: "daily"},
					{Topic: "medical_history", AnyOf: []string{"fatty liver", "liver disease", "hepatitis", "cirrhosis", "nafld"}},
				},
				Bonus: rules.Contribution{focus.Detox: 0.40, focus.Gut: 0.15},
			},
			{
				Name:  "shift_work_daily_alcohol",
				Owner: "alcohol",
				Conditions: []Condition{
					{Topic: "alcohol", Equals: "daily"},
					{Topic: "occupation", AnyOf: []string{"night", "rotating", "graveyard", "shift", "nurse", "paramedic", "security", "warehouse", "bartender", "driver"}},
				},
				Bonus: rules.Contribution{focus.Detox: 0.25, focus.StressAxis: 0.20, focus.Mitochondrial: 0.15},
			},
		},
		DefaultLocalCap: 2.0,
	}
}

// Pipeline applies the modifier stages to one rule result. Build it once
// per process; Apply is safe for concurrent use.
type Pipeline struct {
	severityHigh *textnorm.Matcher
	severityLow  *textnorm.Matcher
	highFactor   float64
	lowFactor    float64

	frequency []FrequencyStep
	ageBands  []AgeBand

	synergies       map[string][]Synergy
	defaultLocalCap float64
}

// New compiles the pipeline tables, failing closed on bad keyword sets,
// non-positive factors, or bonus rows naming undeclared focus areas.
func New(cfg Config) (*Pipeline, error) {
	if cfg.SeverityHighFactor <= 0 || cfg.SeverityLowFactor <= 0 {
		return nil, fmt.Errorf("severity factors must be positive, got high=%g low=%g", cfg.SeverityHighFactor, cfg.SeverityLowFactor)
	}
	if cfg.DefaultLocalCap <= 0 {
		return nil, fmt.Errorf("default local cap must be positive, got %g", cfg.DefaultLocalCap)
	}
	high, err := textnorm.NewMatcher(cfg.SeverityHighKeywords)
	if err != nil {
		return nil, fmt.Errorf("severity high keywords: %w", err)
	}
	low, err := textnorm.NewMatcher(cfg.SeverityLowKeywords)
	if err != nil {
		return nil, fmt.Errorf("severity low keywords: %w", err)
	}

	freq := make([]FrequencyStep, len(cfg.Frequency))
	for i, step := range cfg.Frequency {
		if step.Factor <= 0 {
			return nil, fmt.Errorf("frequency step %q: factor must be positive, got %g", step.Label, step.Factor)
		}
		m, err := textnorm.NewMatcher(step.Keywords)
		if err != nil {
			return nil, fmt.Errorf("frequency step %q: %w", step.Label, err)
		}
		step.matcher = m
		freq[i] = step
	}

	for _, b := range cfg.AgeBands {
		if b.Min >= b.Max {
			return nil, fmt.Errorf("age band %q: empty interval [%d, %d)", b.Label, b.Min, b.Max)
		}
		if b.Factor <= 0 {
			return nil, fmt.Errorf("age band %q: factor must be positive, got %g", b.Label, b.Factor)
		}
	}

	byOwner := make(map[string][]Synergy)
	for _, s := range cfg.Synergies {
		if s.Owner == "" {
			return nil, fmt.Errorf("synergy %q: missing owner topic", s.Name)
		}
		if err := s.Bonus.Validate(); err != nil {
			return nil, fmt.Errorf("synergy %q: %w", s.Name, err)
		}
		compiled := make([]Condition, len(s.Conditions))
		for i, c := range s.Conditions {
			if c.Topic == "" {
				return nil, fmt.Errorf("synergy %q: condition %d missing topic", s.Name, i)
			}
			if len(c.AnyOf) > 0 {
				m, err := textnorm.NewMatcher(c.AnyOf)
				if err != nil {
					return nil, fmt.Errorf("synergy %q: condition %d: %w", s.Name, i, err)
				}
				c.matcher = m
			} else if c.Equals == "" {
				return nil, fmt.Errorf("synergy %q: condition %d declares neither AnyOf nor Equals", s.Name, i)
			}
			compiled[i] = c
		}
		s.Conditions = compiled
		byOwner[s.Owner] = append(byOwner[s.Owner], s)
	}

	return &Pipeline{
		severityHigh:    high,
		severityLow:     low,
		highFactor:      cfg.SeverityHighFactor,
		lowFactor:       cfg.SeverityLowFactor,
		frequency:       freq,
		ageBands:        cfg.AgeBands,
		synergies:       byOwner,
		defaultLocalCap: cfg.DefaultLocalCap,
	}, nil
}

// FiredSet records which synergies have already fired during one run. One
// set is created per scoring run and threaded through every ApplySynergies
// call, so a synergy fires at most once no matter how many rules share its
// owner topic.
type FiredSet map[string]bool

// NewFiredSet returns an empty fired-synergy set for one run.
func NewFiredSet() FiredSet { return make(FiredSet) }

// Apply runs all three modifier stages over a single rule result:
// multipliers, then synergies against the fired set, then the local-cap
// clamp. The input result is not mutated.
func (p *Pipeline) Apply(rule rules.Rule, field rules.FieldInput, ctx *rules.Context, res rules.Result, fired FiredSet) (rules.Result, []Applied) {
	out, applied := p.ApplyMultipliers(rule, field, ctx, res)
	out, synApplied := p.ApplySynergies(rule, ctx, out, fired)
	applied = append(applied, synApplied...)
	out, clampApplied := p.Clamp(rule, out)
	return out, append(applied, clampApplied...)
}

// ApplyMultipliers runs the contextual multiplier stage, composed
// multiplicatively. Safe for concurrent use across evaluations.
func (p *Pipeline) ApplyMultipliers(rule rules.Rule, field rules.FieldInput, ctx *rules.Context, res rules.Result) (rules.Result, []Applied) {
	if res.IsZero() {
		return res, nil
	}

	out := cloneResult(res)
	var applied []Applied
	if f, label := p.severityFactor(field.Text); f != 1.0 {
		out.Contribution.Scale(f)
		applied = append(applied, Applied{Name: label, Kind: "multiplier", Factor: f})
	}
	if f, label := p.frequencyFactor(field.Text); f != 1.0 {
		out.Contribution.Scale(f)
		applied = append(applied, Applied{Name: label, Kind: "multiplier", Factor: f})
	}
	if f, label := p.ageFactor(ctx.Age); f != 1.0 {
		out.Contribution.Scale(f)
		applied = append(applied, Applied{Name: label, Kind: "multiplier", Factor: f})
	}
	return out, applied
}

// ApplySynergies adds the bonuses of this rule's owner-topic synergies
// whose conditions hold, consulting and updating the run's fired set.
// Callers serialize calls sharing one fired set; the engine does this in
// its single-threaded fold.
func (p *Pipeline) ApplySynergies(rule rules.Rule, ctx *rules.Context, res rules.Result, fired FiredSet) (rules.Result, []Applied) {
	owned := p.synergies[rule.Topic()]
	if len(owned) == 0 || res.IsZero() {
		return res, nil
	}

	out := cloneResult(res)
	var applied []Applied
	for _, s := range owned {
		if fired[s.Name] {
			continue
		}
		if !p.conditionsHold(s.Conditions, ctx) {
			continue
		}
		fired[s.Name] = true
		out.Contribution.Add(s.Bonus)
		areas := make([]focus.Area, 0, len(s.Bonus))
		for a := range s.Bonus {
			areas = append(areas, a)
		}
		applied = append(applied, Applied{Name: s.Name, Kind: "synergy", Factor: 1.0, Areas: areas})
	}
	return out, applied
}

// Clamp bounds the result to the rule's local caps. Runs after synergies.
func (p *Pipeline) Clamp(rule rules.Rule, res rules.Result) (rules.Result, []Applied) {
	if res.IsZero() {
		return res, nil
	}

	out := cloneResult(res)
	caps := rule.LocalCaps()
	var clamped []focus.Area
	for a, v := range out.Contribution {
		bound := p.defaultLocalCap
		if c, ok := caps[a]; ok {
			bound = c
		}
		switch {
		case v > bound:
			out.Contribution[a] = bound
			clamped = append(clamped, a)
		case v < -bound:
			out.Contribution[a] = -bound
			clamped = append(clamped, a)
		}
	}
	var applied []Applied
	if len(clamped) > 0 {
		applied = append(applied, Applied{Name: rule.Name() + "_local_cap", Kind: "clamp", Factor: 1.0, Areas: clamped})
	}
	return out, applied
}

func cloneResult(res rules.Result) rules.Result {
	out := rules.Result{
		Contribution: res.Contribution.Clone(),
		Flags:        res.Flags,
		Details:      res.Details,
	}
	if out.Contribution == nil {
		out.Contribution = rules.Contribution{}
	}
	return out
}

func (p *Pipeline) severityFactor(text string) (float64, string) {
	if text == "" {
		return 1.0, ""
	}
	_, high := p.severityHigh.MatchAny(text)
	_, low := p.severityLow.MatchAny(text)
	// Conflicting markers cancel out.
	switch {
	case high && !low:
		return p.highFactor, "severity_high"
	case low && !high:
		return p.lowFactor, "severity_low"
	default:
		return 1.0, ""
	}
}

func (p *Pipeline) frequencyFactor(text string) (float64, string) {
	if text == "" {
		return 1.0, ""
	}
	// Highest matching rung wins.
	for i := len(p.frequency) - 1; i >= 0; i-- {
		step := p.frequency[i]
		if _, ok := step.matcher.MatchAny(text); ok {
			return step.Factor, "frequency_" + step.Label
		}
	}
	return 1.0, ""
}

func (p *Pipeline) ageFactor(age *int) (float64, string) {
	if age == nil {
		return 1.0, ""
	}
	for _, b := range p.ageBands {
		if *age >= b.Min && *age < b.Max {
			return b.Factor, "age_" + b.Label
		}
	}
	return 1.0, ""
}

func (p *Pipeline) conditionsHold(conds []Condition, ctx *rules.Context) bool {
	for _, c := range conds {
		f, ok := ctx.Field(c.Topic)
		if !ok {
			return false
		}
		if c.matcher != nil {
			if _, matched := c.matcher.MatchAny(f.Text); !matched {
				return false
			}
			continue
		}
		answer := f.Category
		if answer == "" {
			answer = f.Text
		}
		if answer != textnorm.Normalize(c.Equals) {
			return false
		}
	}
	return true
}
