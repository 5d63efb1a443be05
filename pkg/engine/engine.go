// Package engine orchestrates a scoring run: parse the record, evaluate
// every applicable rule concurrently, fold the adjusted contributions into
// capped per-area scores, and assemble the ranked, explained report.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/aether-health/focus-engine/pkg/config"
	"github.com/aether-health/focus-engine/pkg/explain"
	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/modifier"
	"github.com/aether-health/focus-engine/pkg/observability/logging"
	"github.com/aether-health/focus-engine/pkg/observability/metrics"
	"github.com/aether-health/focus-engine/pkg/rules"
	"github.com/aether-health/focus-engine/pkg/safety"
)

// PatientRecord is one intake submission. Fields maps topic names to raw
// answers in any supported shape; Biomarkers maps analyte names to
// possibly unit-suffixed readings.
type PatientRecord struct {
	Age        *int              `json:"age,omitempty"`
	Sex        string            `json:"sex,omitempty"`
	Ancestry   []string          `json:"ancestry,omitempty"`
	Fields     map[string]any    `json:"fields,omitempty"`
	Biomarkers map[string]string `json:"biomarkers,omitempty"`
}

// Empty reports whether the record carries no scorable data at all.
func (r PatientRecord) Empty() bool {
	return len(r.Fields) == 0 && len(r.Biomarkers) == 0 && r.Age == nil
}

// RankedScore is one focus area in ranked order.
type RankedScore struct {
	Area  focus.Area `json:"area"`
	Name  string     `json:"name"`
	Score float64    `json:"score"`
}

// Report is the outcome of one scoring run.
type Report struct {
	RunID       string                         `json:"run_id"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Scores      focus.ScoreVector              `json:"scores"`
	Ranked      []RankedScore                  `json:"ranked"`
	SafetyFlags []safety.Flag                  `json:"safety_flags,omitempty"`
	Top         map[focus.Area][]explain.Record `json:"top_contributors,omitempty"`
	Diagnostics []string                       `json:"diagnostics,omitempty"`
}

// Engine scores patient records against a rule registry. Build once;
// ScoreFocusAreas is safe for concurrent use.
type Engine struct {
	cfg         *config.EngineConfig
	registry    *rules.Registry
	pipeline    *modifier.Pipeline
	interceptor *safety.Interceptor
}

// New builds an engine from a validated config and a rule registry.
func New(cfg *config.EngineConfig, registry *rules.Registry) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if registry == nil {
		return nil, fmt.Errorf("nil rule registry")
	}
	pipeline, err := modifier.New(cfg.ModifierConfig())
	if err != nil {
		return nil, fmt.Errorf("build modifier pipeline: %w", err)
	}
	interceptor, err := safety.NewInterceptor(cfg.SafetyLexicon())
	if err != nil {
		return nil, fmt.Errorf("build safety interceptor: %w", err)
	}
	return &Engine{
		cfg:         cfg,
		registry:    registry,
		pipeline:    pipeline,
		interceptor: interceptor,
	}, nil
}

// task pairs one rule with the field it consumes. Tasks are built in
// deterministic order so the fold phase is reproducible regardless of
// worker scheduling.
type task struct {
	rule  rules.Rule
	field rules.FieldInput
}

// evaluation is one completed task.
type evaluation struct {
	task   task
	result rules.Result
	mods   []modifier.Applied
}

// ScoreFocusAreas evaluates one record and returns the ranked report. It
// never returns an error for bad patient data; malformed fields and rule
// failures become diagnostics on the report. The error return covers only
// context cancellation.
func (e *Engine) ScoreFocusAreas(ctx context.Context, record PatientRecord) (*Report, error) {
	start := time.Now()
	defer func() { metrics.RecordRunDuration(time.Since(start).Seconds()) }()

	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Scores:      focus.NewScoreVector(),
	}
	flags := safety.NewFlagSet()

	if record.Empty() {
		report.Diagnostics = append(report.Diagnostics, "empty record: no scorable fields supplied")
		report.Ranked = e.rank(report.Scores)
		return report, nil
	}

	evalCtx, diverted := e.materialize(record, report, flags)

	// Map phase: every (rule, field) pair evaluates independently.
	tasks := e.buildTasks(evalCtx)
	evals := make([]evaluation, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			evals[i] = e.evaluate(t, evalCtx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Fold phase: sequential, order-independent accumulation. Synergies
	// and local-cap clamping run here, against one fired set per run, so
	// a synergy fires at most once even when several rules share its
	// owner topic.
	tracker := explain.NewTracker(e.cfg.TopContributors)
	fired := modifier.NewFiredSet()
	for _, ev := range evals {
		e.fold(ev, evalCtx, report, flags, tracker, diverted, fired)
	}

	e.clampGlobal(report)
	report.Ranked = e.rank(report.Scores)
	report.SafetyFlags = flags.Flags()
	report.Top = tracker.TopAll()

	logging.Infof("scored run %s: %d tasks, %d diagnostics, %d safety flags",
		report.RunID, len(tasks), len(report.Diagnostics), len(report.SafetyFlags))
	return report, nil
}

// materialize parses the record into an evaluation context, scanning every
// field's raw text for safety triggers on the way in. Topics whose text
// triggered an escalation of any kind are diverted: the flag is raised and
// their rule contributions are discarded from scoring.
func (e *Engine) materialize(record PatientRecord, report *Report, flags *safety.FlagSet) (*rules.Context, map[string]bool) {
	evalCtx := rules.NewContext(record.Age, record.Sex, record.Ancestry)
	diverted := make(map[string]bool)

	addField := func(topic string, raw any) {
		f, err := rules.ParseField(topic, raw)
		if err != nil {
			metrics.RecordValidationWarning(topic)
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("field %q: %v", topic, err))
			return
		}
		for _, hit := range e.interceptor.ScanText(f.Text) {
			if flags.Raise(hit.Kind, hit.Trigger) {
				metrics.RecordSafetyEscalation(string(hit.Kind))
				logging.Warnf("safety escalation %q triggered by field %q", hit.Kind, topic)
			}
			diverted[topic] = true
		}
		evalCtx.SetField(f)
	}

	if record.Age != nil {
		addField("age", *record.Age)
	}
	for _, topic := range sortedKeys(record.Fields) {
		addField(topic, record.Fields[topic])
	}
	for _, topic := range sortedStringKeys(record.Biomarkers) {
		addField(topic, record.Biomarkers[topic])
	}
	return evalCtx, diverted
}

// buildTasks pairs every supplied field with the rules registered for its
// topic, in sorted topic order.
func (e *Engine) buildTasks(evalCtx *rules.Context) []task {
	topics := evalCtx.Topics()
	sort.Strings(topics)
	var tasks []task
	for _, topic := range topics {
		field, _ := evalCtx.Field(topic)
		for _, r := range e.registry.ForTopic(topic) {
			tasks = append(tasks, task{rule: r, field: field})
		}
	}
	return tasks
}

// evaluate runs one rule plus the multiplier stage. Synergies and clamping
// wait for the fold, where run-scoped state lives. A panicking rule is
// contained here and reported as a zero contribution with a diagnostic
// flag; one bad rule never takes down the run.
func (e *Engine) evaluate(t task, evalCtx *rules.Context) (ev evaluation) {
	ev.task = t
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("rule %q panicked: %v", t.rule.Name(), r)
			ev.result = rules.Empty(fmt.Sprintf("rule_failure:%s", t.rule.Name()))
			ev.mods = nil
		}
	}()

	ruleStart := time.Now()
	res := t.rule.Evaluate(t.field, evalCtx)
	metrics.RecordRuleEvaluation(t.rule.Name(), time.Since(ruleStart).Seconds())
	for area, delta := range res.Contribution {
		if delta != 0 {
			metrics.RecordRuleMatch(t.rule.Name(), string(area))
		}
	}
	ev.result, ev.mods = e.pipeline.ApplyMultipliers(t.rule, t.field, evalCtx, res)
	return ev
}

// fold accumulates one evaluation into the report state. An evaluation is
// withheld from scoring when its topic's raw text triggered an escalation
// or when its own diagnostic flags do so here; the safety flag always
// outlives the discarded contribution.
func (e *Engine) fold(ev evaluation, evalCtx *rules.Context, report *Report, flags *safety.FlagSet, tracker *explain.Tracker, diverted map[string]bool, fired modifier.FiredSet) {
	escalatedHere := false
	for _, hit := range e.interceptor.ScanFlags(ev.result.Flags) {
		if flags.Raise(hit.Kind, hit.Trigger) {
			metrics.RecordSafetyEscalation(string(hit.Kind))
		}
		escalatedHere = true
	}
	for _, f := range ev.result.Flags {
		if f == rules.FlagInvalidShape || f == rules.FlagMissingContext {
			metrics.RecordValidationWarning(ev.task.field.Topic)
			report.Diagnostics = append(report.Diagnostics,
				fmt.Sprintf("rule %q on %q: %s", ev.task.rule.Name(), ev.task.field.Topic, f))
		}
	}

	if diverted[ev.task.field.Topic] || escalatedHere {
		report.Diagnostics = append(report.Diagnostics,
			fmt.Sprintf("rule %q on %q diverted to safety escalation; contribution withheld", ev.task.rule.Name(), ev.task.field.Topic))
		return
	}

	res, synMods := e.pipeline.ApplySynergies(ev.task.rule, evalCtx, ev.result, fired)
	res, clampMods := e.pipeline.Clamp(ev.task.rule, res)
	mods := append(append(ev.mods, synMods...), clampMods...)

	modNames := make([]string, len(mods))
	for i, m := range mods {
		modNames[i] = m.Name
	}
	for area, delta := range res.Contribution {
		if !area.Valid() {
			metrics.RecordDomainRejection(ev.task.rule.Name())
			logging.Warnf("rule %q contributed to undeclared focus area %q; rejected", ev.task.rule.Name(), area)
			report.Diagnostics = append(report.Diagnostics,
				fmt.Sprintf("rule %q: undeclared focus area %q rejected", ev.task.rule.Name(), area))
			continue
		}
		if delta == 0 {
			continue
		}
		report.Scores[area] += delta
		label := ev.task.rule.Name()
		matched := ev.task.field.Snippet()
		if len(ev.result.Details) > 0 {
			label = ev.result.Details[0].Label
			matched = ev.result.Details[0].MatchedText
		}
		tracker.Add(area, explain.Record{
			Rule:      ev.task.rule.Name(),
			Topic:     ev.task.field.Topic,
			Label:     label,
			Matched:   matched,
			Delta:     delta,
			Modifiers: modNames,
		})
	}
}

// clampGlobal bounds every aggregate score to its global cap. The clamp
// runs once over the final sums, so mixed-sign contributions cancel before
// any cap applies.
func (e *Engine) clampGlobal(report *Report) {
	for area, score := range report.Scores {
		bound := e.cfg.GlobalCap(area)
		switch {
		case score > bound:
			report.Scores[area] = bound
			metrics.RecordCapClamp(string(area))
		case score < -bound:
			report.Scores[area] = -bound
			metrics.RecordCapClamp(string(area))
		}
	}
}

// rank orders every focus area by score descending, breaking ties with the
// declared area priority so equal scores always rank the same way.
func (e *Engine) rank(scores focus.ScoreVector) []RankedScore {
	ranked := make([]RankedScore, 0, len(scores))
	for _, area := range focus.All() {
		ranked = append(ranked, RankedScore{
			Area:  area,
			Name:  area.DisplayName(),
			Score: scores[area],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Area.Priority() < ranked[j].Area.Priority()
	})
	return ranked
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedStringKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
