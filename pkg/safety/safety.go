// Package safety implements the escalation interceptor that runs beside
// scoring. Escalation never alters scores and scoring never suppresses
// escalation; the two streams only meet in the final report.
package safety

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aether-health/focus-engine/pkg/textnorm"
)

// Kind classifies an escalation.
type Kind string

const (
	// KindCrisis marks language indicating acute risk of self-harm.
	KindCrisis Kind = "crisis"
	// KindUrgentCare marks symptoms needing same-day medical attention.
	KindUrgentCare Kind = "urgent_care"
	// KindClinicalReview marks disclosures a clinician should read before
	// any recommendation ships.
	KindClinicalReview Kind = "needs_clinical_review"
)

// FlagPrefix marks rule diagnostic flags that the interceptor promotes to
// escalations, e.g. "safety:crisis".
const FlagPrefix = "safety:"

// Lexicon maps each escalation kind to its trigger phrase list.
type Lexicon map[Kind][]string

// DefaultLexicon returns the built-in trigger phrases. The lists are
// screening heuristics, not a clinical instrument; they err toward
// raising the flag.
func DefaultLexicon() Lexicon {
	return Lexicon{
		KindCrisis: {
			"suicide", "suicidal", "kill myself", "end my life", "end it all",
			"don't want to live", "do not want to live", "better off dead",
			"hurt myself", "hurting myself", "self harm", "self-harm",
			"cutting myself", "overdose on purpose", "no reason to live",
		},
		KindUrgentCare: {
			"chest pain", "crushing pain", "can't breathe", "cannot breathe",
			"coughing blood", "vomiting blood", "blood in stool",
			"sudden numbness", "slurred speech", "fainted", "passing out",
			"worst headache of my life", "suicidal thoughts last night",
		},
		KindClinicalReview: {
			"pregnant", "pregnancy", "chemotherapy", "chemo", "transplant",
			"dialysis", "pacemaker", "warfarin", "blood thinner",
			"eating disorder", "anorexia", "bulimia", "recently hospitalized",
		},
	}
}

// Interceptor scans raw field text and rule diagnostic flags for
// escalation triggers. Build once; scanning is safe for concurrent use.
type Interceptor struct {
	matchers map[Kind]*textnorm.Matcher
}

// NewInterceptor compiles the lexicon.
func NewInterceptor(lex Lexicon) (*Interceptor, error) {
	matchers := make(map[Kind]*textnorm.Matcher, len(lex))
	for kind, phrases := range lex {
		m, err := textnorm.NewMatcher(phrases)
		if err != nil {
			return nil, fmt.Errorf("safety lexicon %q: %w", kind, err)
		}
		matchers[kind] = m
	}
	return &Interceptor{matchers: matchers}, nil
}

// Hit is one trigger occurrence: the kind raised and the phrase that
// raised it.
type Hit struct {
	Kind    Kind
	Trigger string
}

// ScanText returns every escalation the text triggers, in a stable order.
func (i *Interceptor) ScanText(text string) []Hit {
	if text == "" {
		return nil
	}
	var hits []Hit
	for _, kind := range []Kind{KindCrisis, KindUrgentCare, KindClinicalReview} {
		m, ok := i.matchers[kind]
		if !ok {
			continue
		}
		if phrase, matched := m.MatchAny(text); matched {
			hits = append(hits, Hit{Kind: kind, Trigger: phrase})
		}
	}
	return hits
}

// ScanFlags promotes safety-prefixed rule diagnostic flags to escalations.
func (i *Interceptor) ScanFlags(flags []string) []Hit {
	var hits []Hit
	for _, f := range flags {
		if !strings.HasPrefix(f, FlagPrefix) {
			continue
		}
		hits = append(hits, Hit{Kind: Kind(strings.TrimPrefix(f, FlagPrefix)), Trigger: f})
	}
	return hits
}

// FlagSet tracks per-kind escalation state for one run. Each kind moves
// NORMAL to ESCALATED at most once and never back; later triggers of an
// escalated kind are recorded as additional evidence only.
type FlagSet struct {
	raised map[Kind][]string
}

// NewFlagSet returns an empty flag set.
func NewFlagSet() *FlagSet {
	return &FlagSet{raised: make(map[Kind][]string)}
}

// Raise records a trigger and reports whether this call was the NORMAL to
// ESCALATED transition for its kind.
func (s *FlagSet) Raise(kind Kind, trigger string) bool {
	_, already := s.raised[kind]
	s.raised[kind] = append(s.raised[kind], trigger)
	return !already
}

// Raised reports whether a kind has escalated.
func (s *FlagSet) Raised(kind Kind) bool {
	_, ok := s.raised[kind]
	return ok
}

// Any reports whether any kind has escalated.
func (s *FlagSet) Any() bool { return len(s.raised) > 0 }

// Flag is one escalated kind with the evidence that raised it.
type Flag struct {
	Kind     Kind
	Triggers []string
}

// Flags returns the escalated kinds with their evidence, sorted by kind
// for deterministic reports.
func (s *FlagSet) Flags() []Flag {
	out := make([]Flag, 0, len(s.raised))
	for kind, triggers := range s.raised {
		t := make([]string, len(triggers))
		copy(t, triggers)
		out = append(out, Flag{Kind: kind, Triggers: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
