// Package config loads and validates the engine configuration. All tables
// fail closed: a config naming an undeclared focus area or an invalid
// factor is rejected at load time, never mid-run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/modifier"
	"github.com/aether-health/focus-engine/pkg/rules"
	"github.com/aether-health/focus-engine/pkg/safety"
)

// EngineConfig is the root of the YAML configuration.
type EngineConfig struct {
	// TopContributors is the per-area provenance depth in reports.
	TopContributors int `yaml:"top_contributors"`

	// DefaultLocalCap bounds rule contributions for areas without an
	// explicit per-rule cap.
	DefaultLocalCap float64 `yaml:"default_local_cap"`

	// GlobalCaps bound each area's aggregate score. Areas omitted here
	// use DefaultGlobalCap.
	GlobalCaps map[string]float64 `yaml:"global_caps"`

	// DefaultGlobalCap applies to areas missing from GlobalCaps.
	DefaultGlobalCap float64 `yaml:"default_global_cap"`

	Severity  SeverityConfig   `yaml:"severity"`
	Frequency []FrequencyStep  `yaml:"frequency"`
	AgeBands  []AgeBand        `yaml:"age_bands"`
	Synergies []Synergy        `yaml:"synergies"`
	Safety    SafetyConfig     `yaml:"safety"`
	Workers   int              `yaml:"workers"`
}

// SeverityConfig declares the severity multiplier keywords and factors.
type SeverityConfig struct {
	HighKeywords []string `yaml:"high_keywords"`
	LowKeywords  []string `yaml:"low_keywords"`
	HighFactor   float64  `yaml:"high_factor"`
	LowFactor    float64  `yaml:"low_factor"`
}

// FrequencyStep is one rung of the frequency ladder, least frequent first.
type FrequencyStep struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Factor   float64  `yaml:"factor"`
}

// AgeBand scales contributions for an age range [min, max).
type AgeBand struct {
	Label  string  `yaml:"label"`
	Min    int     `yaml:"min"`
	Max    int     `yaml:"max"`
	Factor float64 `yaml:"factor"`
}

// Synergy is a cross-topic additive bonus owned by one topic.
type Synergy struct {
	Name       string             `yaml:"name"`
	Owner      string             `yaml:"owner"`
	Conditions []SynergyCondition `yaml:"conditions"`
	Bonus      map[string]float64 `yaml:"bonus"`
}

// SynergyCondition gates a synergy on another field. Exactly one of
// any_of and equals is set.
type SynergyCondition struct {
	Topic  string   `yaml:"topic"`
	AnyOf  []string `yaml:"any_of"`
	Equals string   `yaml:"equals"`
}

// SafetyConfig declares the escalation trigger lexicon per kind.
type SafetyConfig struct {
	Lexicon map[string][]string `yaml:"lexicon"`
}

// Default returns the built-in configuration, equivalent to the compiled
// modifier and safety tables.
func Default() *EngineConfig {
	mod := modifier.Default()
	freq := make([]FrequencyStep, len(mod.Frequency))
	for i, s := range mod.Frequency {
		freq[i] = FrequencyStep{Label: s.Label, Keywords: s.Keywords, Factor: s.Factor}
	}
	bands := make([]AgeBand, len(mod.AgeBands))
	for i, b := range mod.AgeBands {
		bands[i] = AgeBand{Label: b.Label, Min: b.Min, Max: b.Max, Factor: b.Factor}
	}
	syns := make([]Synergy, len(mod.Synergies))
	for i, s := range mod.Synergies {
		conds := make([]SynergyCondition, len(s.Conditions))
		for j, c := range s.Conditions {
			conds[j] = SynergyCondition{Topic: c.Topic, AnyOf: c.AnyOf, Equals: c.Equals}
		}
		bonus := make(map[string]float64, len(s.Bonus))
		for a, v := range s.Bonus {
			bonus[string(a)] = v
		}
		syns[i] = Synergy{Name: s.Name, Owner: s.Owner, Conditions: conds, Bonus: bonus}
	}
	lex := make(map[string][]string)
	for kind, phrases := range safety.DefaultLexicon() {
		lex[string(kind)] = phrases
	}
	return &EngineConfig{
		TopContributors:  3,
		DefaultLocalCap:  mod.DefaultLocalCap,
		GlobalCaps:       map[string]float64{},
		DefaultGlobalCap: 10.0,
		Severity: SeverityConfig{
			HighKeywords: mod.SeverityHighKeywords,
			LowKeywords:  mod.SeverityLowKeywords,
			HighFactor:   mod.SeverityHighFactor,
			LowFactor:    mod.SeverityLowFactor,
		},
		Frequency: freq,
		AgeBands:  bands,
		Synergies: syns,
		Safety:    SafetyConfig{Lexicon: lex},
		Workers:   4,
	}
}

// Load reads and parses a YAML config file.
func Load(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, so a partial file overrides only
// what it names, then validates the merged result.
func Parse(data []byte) (*EngineConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every table against the declared focus-area set and the
// factor constraints.
func (c *EngineConfig) Validate() error {
	if c.TopContributors < 1 {
		return fmt.Errorf("top_contributors must be at least 1, got %d", c.TopContributors)
	}
	if c.DefaultLocalCap <= 0 {
		return fmt.Errorf("default_local_cap must be positive, got %g", c.DefaultLocalCap)
	}
	if c.DefaultGlobalCap <= 0 {
		return fmt.Errorf("default_global_cap must be positive, got %g", c.DefaultGlobalCap)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for name, cap := range c.GlobalCaps {
		if !focus.Area(name).Valid() {
			return fmt.Errorf("global_caps: undeclared focus area %q", name)
		}
		if cap <= 0 {
			return fmt.Errorf("global_caps: non-positive cap %g for %q", cap, name)
		}
	}
	if c.Severity.HighFactor <= 0 || c.Severity.LowFactor <= 0 {
		return fmt.Errorf("severity factors must be positive")
	}
	for _, s := range c.Frequency {
		if s.Factor <= 0 {
			return fmt.Errorf("frequency step %q: non-positive factor %g", s.Label, s.Factor)
		}
	}
	for _, b := range c.AgeBands {
		if b.Min >= b.Max {
			return fmt.Errorf("age band %q: empty interval [%d, %d)", b.Label, b.Min, b.Max)
		}
		if b.Factor <= 0 {
			return fmt.Errorf("age band %q: non-positive factor %g", b.Label, b.Factor)
		}
	}
	for _, s := range c.Synergies {
		if s.Name == "" || s.Owner == "" {
			return fmt.Errorf("synergy %q: name and owner are required", s.Name)
		}
		for name := range s.Bonus {
			if !focus.Area(name).Valid() {
				return fmt.Errorf("synergy %q: undeclared focus area %q in bonus", s.Name, name)
			}
		}
		for i, cond := range s.Conditions {
			if cond.Topic == "" {
				return fmt.Errorf("synergy %q: condition %d missing topic", s.Name, i)
			}
			if len(cond.AnyOf) == 0 && cond.Equals == "" {
				return fmt.Errorf("synergy %q: condition %d declares neither any_of nor equals", s.Name, i)
			}
		}
	}
	return nil
}

// ModifierConfig converts the loaded tables to the modifier pipeline form.
func (c *EngineConfig) ModifierConfig() modifier.Config {
	freq := make([]modifier.FrequencyStep, len(c.Frequency))
	for i, s := range c.Frequency {
		freq[i] = modifier.FrequencyStep{Label: s.Label, Keywords: s.Keywords, Factor: s.Factor}
	}
	bands := make([]modifier.AgeBand, len(c.AgeBands))
	for i, b := range c.AgeBands {
		bands[i] = modifier.AgeBand{Label: b.Label, Min: b.Min, Max: b.Max, Factor: b.Factor}
	}
	syns := make([]modifier.Synergy, len(c.Synergies))
	for i, s := range c.Synergies {
		conds := make([]modifier.Condition, len(s.Conditions))
		for j, cond := range s.Conditions {
			conds[j] = modifier.Condition{Topic: cond.Topic, AnyOf: cond.AnyOf, Equals: cond.Equals}
		}
		bonus := make(rules.Contribution, len(s.Bonus))
		for name, v := range s.Bonus {
			bonus[focus.Area(name)] = v
		}
		syns[i] = modifier.Synergy{Name: s.Name, Owner: s.Owner, Conditions: conds, Bonus: bonus}
	}
	return modifier.Config{
		SeverityHighKeywords: c.Severity.HighKeywords,
		SeverityLowKeywords:  c.Severity.LowKeywords,
		SeverityHighFactor:   c.Severity.HighFactor,
		SeverityLowFactor:    c.Severity.LowFactor,
		Frequency:            freq,
		AgeBands:             bands,
		Synergies:            syns,
		DefaultLocalCap:      c.DefaultLocalCap,
	}
}

// SafetyLexicon converts the loaded lexicon to the interceptor form.
func (c *EngineConfig) SafetyLexicon() safety.Lexicon {
	lex := make(safety.Lexicon, len(c.Safety.Lexicon))
	for kind, phrases := range c.Safety.Lexicon {
		lex[safety.Kind(kind)] = phrases
	}
	return lex
}

// GlobalCap returns the aggregate bound for an area.
func (c *EngineConfig) GlobalCap(a focus.Area) float64 {
	if cap, ok := c.GlobalCaps[string(a)]; ok {
		return cap
	}
	return c.DefaultGlobalCap
}
