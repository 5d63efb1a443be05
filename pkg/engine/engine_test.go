package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-health/focus-engine/pkg/config"
	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/rules"
	"github.com/aether-health/focus-engine/pkg/safety"
)

func testRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	exercise, err := rules.NewCategoricalRule("exercise", "exercise", map[string]rules.Contribution{
		"never": {focus.Cardiometabolic: 0.6, focus.Mitochondrial: 0.3},
		"daily": {focus.Cardiometabolic: -0.2},
	}, nil)
	require.NoError(t, err)

	mood, err := rules.NewKeywordRule("mood_check", "mood", []rules.KeywordEntry{
		{Label: "hopeless", Keywords: []string{"hopeless"}, Weights: rules.Contribution{focus.Cognitive: 0.5, focus.StressAxis: 0.5}},
	}, nil, nil)
	require.NoError(t, err)

	reg, err := rules.NewRegistry(exercise, mood)
	require.NoError(t, err)
	return reg
}

func newEngine(t *testing.T, cfg *config.EngineConfig, reg *rules.Registry) *Engine {
	t.Helper()
	if reg == nil {
		reg = testRegistry(t)
	}
	e, err := New(cfg, reg)
	require.NoError(t, err)
	return e
}

func TestScoreEmptyRecord(t *testing.T) {
	e := newEngine(t, nil, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{})
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Len(t, report.Ranked, len(focus.All()))
	for _, r := range report.Ranked {
		assert.Zero(t, r.Score)
	}
	assert.Empty(t, report.SafetyFlags)
	assert.NotEmpty(t, report.Diagnostics)
}

func TestScoreBasicContribution(t *testing.T) {
	e := newEngine(t, nil, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"exercise": "never"},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, report.Scores[focus.Cardiometabolic], 1e-9)
	assert.InDelta(t, 0.3, report.Scores[focus.Mitochondrial], 1e-9)
	assert.Equal(t, focus.Cardiometabolic, report.Ranked[0].Area)

	top := report.Top[focus.Cardiometabolic]
	require.Len(t, top, 1)
	assert.Equal(t, "exercise", top[0].Rule)
	assert.InDelta(t, 0.6, top[0].Delta, 1e-9)
}

func TestScoreNegativeContribution(t *testing.T) {
	e := newEngine(t, nil, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"exercise": "daily"},
	})
	require.NoError(t, err)
	assert.InDelta(t, -0.2, report.Scores[focus.Cardiometabolic], 1e-9)
}

func TestScoreDeterministic(t *testing.T) {
	e := newEngine(t, nil, nil)
	record := PatientRecord{
		Fields: map[string]any{
			"exercise": "never",
			"mood":     "feeling hopeless lately",
		},
	}

	first, err := e.ScoreFocusAreas(context.Background(), record)
	require.NoError(t, err)
	second, err := e.ScoreFocusAreas(context.Background(), record)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first.Scores, second.Scores))
	assert.Empty(t, cmp.Diff(first.Ranked, second.Ranked))
	assert.Empty(t, cmp.Diff(first.Top, second.Top))
}

func TestScoreCrisisDivertsContribution(t *testing.T) {
	e := newEngine(t, nil, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{
			"exercise": "never",
			"mood":     "hopeless, i want to end my life",
		},
	})
	require.NoError(t, err)

	require.Len(t, report.SafetyFlags, 1)
	assert.Equal(t, safety.KindCrisis, report.SafetyFlags[0].Kind)

	assert.Zero(t, report.Scores[focus.Cognitive], "diverted topic contributes nothing")
	assert.Zero(t, report.Scores[focus.StressAxis])
	assert.InDelta(t, 0.6, report.Scores[focus.Cardiometabolic], 1e-9, "other topics still score")
	assert.NotEmpty(t, report.Ranked, "ranking is never suppressed by escalation")
}

func TestScoreSynergyFiresOncePerRun(t *testing.T) {
	cfg := config.Default()
	cfg.Synergies = []config.Synergy{{
		Name:  "pain_poor_sleep",
		Owner: "symptoms",
		Conditions: []config.SynergyCondition{
			{Topic: "sleep_quality", AnyOf: []string{"poor"}},
		},
		Bonus: map[string]float64{string(focus.Detox): 0.2},
	}}

	headache, err := rules.NewKeywordRule("headaches", "symptoms", []rules.KeywordEntry{
		{Label: "headache", Keywords: []string{"headaches"}, Weights: rules.Contribution{focus.Cognitive: 0.5}},
	}, nil, nil)
	require.NoError(t, err)
	fatigue, err := rules.NewKeywordRule("fatigue", "symptoms", []rules.KeywordEntry{
		{Label: "tired", Keywords: []string{"tired"}, Weights: rules.Contribution{focus.Mitochondrial: 0.3}},
	}, nil, nil)
	require.NoError(t, err)
	reg, err := rules.NewRegistry(headache, fatigue)
	require.NoError(t, err)

	e := newEngine(t, cfg, reg)
	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{
			"symptoms":      "headaches and tired",
			"sleep_quality": "poor",
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, report.Scores[focus.Detox], 1e-9, "bonus added once, not once per contributing rule")
}

func TestScoreFlagEscalationDivertsContribution(t *testing.T) {
	mood, err := rules.NewKeywordRule("mood_check", "mood", []rules.KeywordEntry{
		{Label: "hopeless", Keywords: []string{"hopeless"},
			Weights: rules.Contribution{focus.Cognitive: 0.5},
			Flags:   []string{"safety:crisis"}},
	}, nil, nil)
	require.NoError(t, err)
	reg, err := rules.NewRegistry(mood)
	require.NoError(t, err)

	e := newEngine(t, nil, reg)
	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"mood": "feeling hopeless"},
	})
	require.NoError(t, err)

	require.Len(t, report.SafetyFlags, 1)
	assert.Equal(t, safety.KindCrisis, report.SafetyFlags[0].Kind)
	assert.Zero(t, report.Scores[focus.Cognitive], "the escalating rule's contribution is withheld")
}

func TestScoreUrgentCareDivertsContribution(t *testing.T) {
	symptoms, err := rules.NewKeywordRule("chest", "symptoms", []rules.KeywordEntry{
		{Label: "chest_pain", Keywords: []string{"chest pain"}, Weights: rules.Contribution{focus.Cardiometabolic: 0.7}},
	}, nil, nil)
	require.NoError(t, err)
	reg, err := rules.NewRegistry(symptoms)
	require.NoError(t, err)

	e := newEngine(t, nil, reg)
	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"symptoms": "crushing chest pain since this morning"},
	})
	require.NoError(t, err)

	require.Len(t, report.SafetyFlags, 1)
	assert.Equal(t, safety.KindUrgentCare, report.SafetyFlags[0].Kind)
	assert.Zero(t, report.Scores[focus.Cardiometabolic], "escalated topics divert regardless of kind")
}

func TestScoreDiagnosisBaseWeightEndToEnd(t *testing.T) {
	age := 34
	e := newEngine(t, nil, rules.MustDefaultRegistry())

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Age:    &age,
		Fields: map[string]any{"medical_history": "type 2 diabetes"},
	})
	require.NoError(t, err)

	top := report.Top[focus.Cardiometabolic]
	require.NotEmpty(t, top)
	assert.Equal(t, "diagnosis", top[0].Rule)
	assert.InDelta(t, 0.80, top[0].Delta, 1e-9, "documented base weight survives the default pipeline")
}

func TestScoreOrderIndependent(t *testing.T) {
	cfg := config.Default()
	cfg.Synergies = []config.Synergy{{
		Name:  "pain_poor_sleep",
		Owner: "symptoms",
		Conditions: []config.SynergyCondition{
			{Topic: "sleep_quality", AnyOf: []string{"poor"}},
		},
		Bonus: map[string]float64{string(focus.Detox): 0.2},
	}}

	build := func(t *testing.T, reversed bool) *rules.Registry {
		headache, err := rules.NewKeywordRule("headaches", "symptoms", []rules.KeywordEntry{
			{Label: "headache", Keywords: []string{"headaches"}, Weights: rules.Contribution{focus.Cognitive: 0.5}},
		}, nil, nil)
		require.NoError(t, err)
		fatigue, err := rules.NewKeywordRule("fatigue", "symptoms", []rules.KeywordEntry{
			{Label: "tired", Keywords: []string{"tired"}, Weights: rules.Contribution{focus.Mitochondrial: 0.3}},
		}, nil, nil)
		require.NoError(t, err)
		sleep, err := rules.NewCategoricalRule("sleep", "sleep_quality", map[string]rules.Contribution{
			"poor": {focus.StressAxis: 0.4},
		}, nil)
		require.NoError(t, err)

		rs := []rules.Rule{headache, fatigue, sleep}
		if reversed {
			rs = []rules.Rule{sleep, fatigue, headache}
		}
		reg, err := rules.NewRegistry(rs...)
		require.NoError(t, err)
		return reg
	}

	record := PatientRecord{
		Fields: map[string]any{
			"symptoms":      "headaches and tired",
			"sleep_quality": "poor",
		},
	}

	forward, err := newEngine(t, cfg, build(t, false)).ScoreFocusAreas(context.Background(), record)
	require.NoError(t, err)
	backward, err := newEngine(t, cfg, build(t, true)).ScoreFocusAreas(context.Background(), record)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(forward.Scores, backward.Scores))
	assert.Empty(t, cmp.Diff(forward.Ranked, backward.Ranked))
}

func TestScoreGlobalCapClamp(t *testing.T) {
	cfg := config.Default()
	cfg.GlobalCaps = map[string]float64{string(focus.Cardiometabolic): 0.5}
	e := newEngine(t, cfg, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"exercise": "never"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, report.Scores[focus.Cardiometabolic])
}

func TestScoreRankTieBreak(t *testing.T) {
	e := newEngine(t, nil, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"exercise": "unrecognized answer"},
	})
	require.NoError(t, err)

	// All scores equal, so ranking follows declared area priority.
	want := focus.All()
	for i, r := range report.Ranked {
		assert.Equal(t, want[i], r.Area)
	}
}

func TestScoreMalformedFieldIsDiagnosticNotError(t *testing.T) {
	e := newEngine(t, nil, nil)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{
			"exercise": "never",
			"broken":   map[string]any{"nested": map[string]any{"x": 1}},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, report.Scores[focus.Cardiometabolic], 1e-9)

	found := false
	for _, d := range report.Diagnostics {
		if strings.Contains(d, "broken") {
			found = true
		}
	}
	assert.True(t, found, "malformed field surfaces as a diagnostic")
}

type panicRule struct{}

func (panicRule) Name() string                         { return "panics" }
func (panicRule) Topic() string                        { return "exercise" }
func (panicRule) LocalCaps() map[focus.Area]float64    { return nil }
func (panicRule) Evaluate(rules.FieldInput, *rules.Context) rules.Result {
	panic("boom")
}

func TestScoreContainsRulePanic(t *testing.T) {
	reg, err := rules.NewRegistry(panicRule{})
	require.NoError(t, err)
	e := newEngine(t, nil, reg)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Fields: map[string]any{"exercise": "never"},
	})
	require.NoError(t, err, "a panicking rule never fails the run")
	for _, r := range report.Ranked {
		assert.Zero(t, r.Score)
	}
}

func TestScoreBiomarkers(t *testing.T) {
	reg, err := rules.DefaultRegistry()
	require.NoError(t, err)
	e := newEngine(t, nil, reg)

	report, err := e.ScoreFocusAreas(context.Background(), PatientRecord{
		Biomarkers: map[string]string{"hba1c": "6.8 %"},
	})
	require.NoError(t, err)
	assert.Greater(t, report.Scores[focus.Cardiometabolic], 0.0)
}

func TestScoreCancelledContext(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.ScoreFocusAreas(ctx, PatientRecord{
		Fields: map[string]any{"exercise": "never"},
	})
	assert.Error(t, err)
}
