package rules

import (
	"fmt"
	"sort"
)

// Registry holds the immutable rule set for a process. It is built once and
// injected into every scoring run; nothing mutates it afterwards, so
// concurrent runs share it freely.
type Registry struct {
	rules   []Rule
	byTopic map[string][]Rule
}

// NewRegistry builds a registry, rejecting duplicate rule names.
func NewRegistry(rs ...Rule) (*Registry, error) {
	reg := &Registry{byTopic: make(map[string][]Rule)}
	seen := make(map[string]bool, len(rs))
	for _, r := range rs {
		if r == nil {
			return nil, fmt.Errorf("nil rule in registry")
		}
		if seen[r.Name()] {
			return nil, fmt.Errorf("duplicate rule name %q", r.Name())
		}
		seen[r.Name()] = true
		reg.rules = append(reg.rules, r)
		reg.byTopic[r.Topic()] = append(reg.byTopic[r.Topic()], r)
	}
	return reg, nil
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// ForTopic returns every rule registered for a topic.
func (r *Registry) ForTopic(topic string) []Rule {
	return r.byTopic[topic]
}

// Topics returns the registered topics, sorted.
func (r *Registry) Topics() []string {
	out := make([]string, 0, len(r.byTopic))
	for t := range r.byTopic {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }
