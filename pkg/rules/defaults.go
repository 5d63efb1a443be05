package rules

import (
	"math"

	"github.com/aether-health/focus-engine/pkg/focus"
	"github.com/aether-health/focus-engine/pkg/textnorm"
)

// Default topical rule tables. These are configuration data, not engine
// logic: the weights mirror the clinician-authored intake tables and are
// expected to be revised without touching the evaluators above.

const (
	cm   = focus.Cardiometabolic
	cog  = focus.Cognitive
	dtx  = focus.Detox
	imm  = focus.Immune
	mito = focus.Mitochondrial
	skn  = focus.Skin
	str  = focus.StressAxis
	hrm  = focus.Hormonal
	ga   = focus.Gut
)

func defaultAgeRule() (Rule, error) {
	return NewNumericThresholdRule("age_bands", "age", []Band{
		{Label: "18-25", Min: 18, Max: 26, Weights: Contribution{cm: 0.30, cog: 0.50, dtx: 0.30, imm: 0.30, mito: 0.30, skn: 0.40, str: 0.40, hrm: 0.50, ga: 0.30}},
		{Label: "26-39", Min: 26, Max: 40, Weights: Contribution{cm: 0.40, cog: 0.30, dtx: 0.30, imm: 0.20, mito: 0.30, skn: 0.20, str: 0.50, hrm: 0.40, ga: 0.30}},
		{Label: "40-49", Min: 40, Max: 50, Weights: Contribution{cm: 0.50, cog: 0.30, dtx: 0.30, imm: 0.30, mito: 0.40, skn: 0.30, str: 0.50, hrm: 0.50, ga: 0.30}},
		{Label: "50-59", Min: 50, Max: 60, Weights: Contribution{cm: 0.60, cog: 0.40, dtx: 0.40, imm: 0.30, mito: 0.50, skn: 0.40, str: 0.40, hrm: 0.60, ga: 0.40}},
		{Label: "60-69", Min: 60, Max: 70, Weights: Contribution{cm: 0.70, cog: 0.60, dtx: 0.50, imm: 0.50, mito: 0.60, skn: 0.50, str: 0.40, hrm: 0.30, ga: 0.50}},
		{Label: "70+", Min: 70, Max: math.Inf(1), Weights: Contribution{cm: 0.80, cog: 0.70, dtx: 0.60, imm: 0.60, mito: 0.70, skn: 0.60, str: 0.30, hrm: 0.20, ga: 0.60}},
	}, nil)
}

func defaultBMIRule() (Rule, error) {
	return NewNumericThresholdRule("bmi_bands", "bmi", []Band{
		{Label: "underweight", Min: 0, Max: 18.5, Weights: Contribution{cm: 0.20, cog: 0.30, dtx: 0.30, imm: 0.50, mito: 0.50, skn: 0.30, str: 0.30, hrm: 0.30, ga: 0.60}},
		{Label: "healthy", Min: 18.5, Max: 25, Weights: Contribution{cm: 0.20, cog: 0.20, dtx: 0.20, imm: 0.20, mito: 0.20, skn: 0.20, str: 0.25, hrm: 0.20, ga: 0.20}},
		{Label: "overweight", Min: 25, Max: 30, Weights: Contribution{cm: 0.50, cog: 0.30, dtx: 0.35, imm: 0.35, mito: 0.40, skn: 0.30, str: 0.30, hrm: 0.40, ga: 0.30}},
		{Label: "obesity_1", Min: 30, Max: 35, Weights: Contribution{cm: 0.60, cog: 0.40, dtx: 0.50, imm: 0.45, mito: 0.50, skn: 0.40, str: 0.35, hrm: 0.50, ga: 0.40}},
		{Label: "obesity_2", Min: 35, Max: 40, Weights: Contribution{cm: 0.70, cog: 0.45, dtx: 0.55, imm: 0.50, mito: 0.60, skn: 0.50, str: 0.35, hrm: 0.50, ga: 0.45}},
		{Label: "obesity_3", Min: 40, Max: math.Inf(1), Weights: Contribution{cm: 0.80, cog: 0.50, dtx: 0.60, imm: 0.60, mito: 0.70, skn: 0.60, str: 0.35, hrm: 0.50, ga: 0.50}},
	}, nil)
}

func defaultHeightRule() (Rule, error) {
	// Height in centimeters; extreme stature carries modest hormonal and
	// cardiometabolic signal only.
	return NewNumericThresholdRule("height_bands", "height_cm", []Band{
		{Label: "very_short", Min: 0, Max: 150, Weights: Contribution{hrm: 0.20, cm: 0.10}},
		{Label: "short", Min: 150, Max: 162, Weights: Contribution{hrm: 0.10}},
		{Label: "average", Min: 162, Max: 185, Weights: Contribution{}},
		{Label: "tall", Min: 185, Max: 198, Weights: Contribution{hrm: 0.10}},
		{Label: "very_tall", Min: 198, Max: math.Inf(1), Weights: Contribution{hrm: 0.20, cm: 0.15}},
	}, nil)
}

// defaultDiagnosisRule scores self-reported diagnoses from medical history
// free text. Entries are independent: comorbid diagnoses stack, bounded by
// the local caps.
func defaultDiagnosisRule() (Rule, error) {
	return NewKeywordRule("diagnosis", "medical_history", []KeywordEntry{
		{Label: "type_1_diabetes", Keywords: []string{"type 1 diabetes", "t1d", "insulin dependent diabetes"},
			Weights: Contribution{cm: 0.75, imm: 0.30, dtx: 0.30}},
		{Label: "type_2_diabetes", Keywords: []string{"type 2 diabetes", "t2d", "diabetes"},
			Weights: Contribution{cm: 0.80, dtx: 0.30, mito: 0.25}},
		{Label: "hyperlipidemia", Keywords: []string{"hyperlipidemia", "high cholesterol"},
			Weights: Contribution{cm: 0.60}},
		{Label: "hypertension", Keywords: []string{"hypertension", "high blood pressure"},
			Weights: Contribution{cm: 0.60}},
		{Label: "coronary_artery_disease", Keywords: []string{"coronary artery disease", "heart attack", "stent"},
			Weights: Contribution{cm: 0.85, mito: 0.30, cog: 0.20}},
		{Label: "stroke", Keywords: []string{"stroke"},
			Weights: Contribution{cog: 0.80, cm: 0.40}},
		{Label: "hypothyroid_autoimmune", Keywords: []string{"hashimoto", "autoimmune thyroid"},
			Weights: Contribution{hrm: 0.60, imm: 0.40, cog: 0.20}},
		{Label: "hyperthyroid", Keywords: []string{"hyperthyroid", "overactive thyroid", "graves"},
			Weights: Contribution{hrm: 0.60, cm: 0.30, str: 0.20, cog: 0.20}},
		{Label: "asthma", Keywords: []string{"asthma"},
			Weights: Contribution{imm: 0.50, str: 0.20}},
		{Label: "chronic_kidney_disease", Keywords: []string{"chronic kidney", "ckd", "dialysis"},
			Weights: Contribution{dtx: 0.60, cm: 0.50, mito: 0.30, imm: 0.20}},
		{Label: "liver_disease", Keywords: []string{"liver disease", "hepatitis", "cirrhosis"},
			Weights: Contribution{dtx: 0.70, ga: 0.30, cm: 0.20}},
		{Label: "fatty_liver", Keywords: []string{"fatty liver", "nafld", "masld"},
			Weights: Contribution{dtx: 0.60, cm: 0.40, ga: 0.30}},
		{Label: "ibs", Keywords: []string{"irritable bowel", "ibs"},
			Weights: Contribution{ga: 0.70, str: 0.30, imm: 0.20}},
		{Label: "ibd", Keywords: []string{"crohn", "ulcerative colitis", "ibd"},
			Weights: Contribution{ga: 0.80, imm: 0.60, dtx: 0.30, mito: 0.20}},
		{Label: "celiac", Keywords: []string{"celiac"},
			Weights: Contribution{ga: 0.80, imm: 0.50, hrm: 0.20}},
		{Label: "gerd", Keywords: []string{"gerd", "reflux", "hiatal hernia"},
			Weights: Contribution{ga: 0.50}},
		{Label: "depression", Keywords: []string{"depression"},
			Weights: Contribution{cog: 0.60, str: 0.40, mito: 0.20}},
		{Label: "anxiety", Keywords: []string{"anxiety", "ptsd"},
			Weights: Contribution{str: 0.60, cog: 0.30, ga: 0.10}},
		{Label: "fibromyalgia", Keywords: []string{"fibromyalgia", "chronic pain"},
			Weights: Contribution{str: 0.50, cog: 0.40, mito: 0.40}},
		{Label: "osteoporosis", Keywords: []string{"osteoporosis"},
			Weights: Contribution{hrm: 0.50, cm: 0.20, cog: 0.10}},
		{Label: "cancer_history", Keywords: []string{"cancer", "carcinoma", "lymphoma", "leukemia"},
			Weights: Contribution{dtx: 0.50, str: 0.40, imm: 0.30, cog: 0.20}},
		{Label: "gout", Keywords: []string{"gout"},
			Weights: Contribution{cm: 0.40, dtx: 0.20, ga: 0.10, imm: 0.10}},
	}, nil, map[focus.Area]float64{
		cm: 2.0, cog: 1.5, dtx: 1.5, imm: 1.5, mito: 1.2, skn: 1.0, str: 1.5, hrm: 1.2, ga: 2.0,
	})
}

// defaultAlcoholRule maps the alcohol-frequency answer to exposure-category
// base scores. Amount free text refines the category upstream of this rule
// through the frequency multiplier in the modifier pipeline.
func defaultAlcoholRule() (Rule, error) {
	return NewCategoricalRule("alcohol_exposure", "alcohol", map[string]Contribution{
		"rarely":    {dtx: 0.10, cm: 0.05, ga: 0.05, imm: 0.05, mito: 0.05, str: 0.05},
		"monthly":   {dtx: 0.10, cm: 0.05, ga: 0.05, imm: 0.05, mito: 0.05, str: 0.05},
		"sometimes": {dtx: 0.30, cm: 0.10, ga: 0.30, imm: 0.10, mito: 0.10, skn: 0.05, str: 0.05, cog: 0.05},
		"daily":     {dtx: 1.00, cm: 0.80, ga: 0.70, imm: 0.20, mito: 0.20, skn: 0.10, str: 0.10, cog: 0.10},
	}, map[focus.Area]float64{
		dtx: 1.3, cm: 1.0, ga: 1.0, imm: 0.6, mito: 0.5, skn: 0.4, str: 0.4, cog: 0.3,
	})
}

// AlcoholAmountRule bands weekly drink counts with sex-aware heavy-use
// thresholds (NIAAA: above 14 drinks/week for men, 7 for women) and a
// binge add-on when the free text mentions binge episodes.
type AlcoholAmountRule struct {
	binge *textnorm.Matcher
}

// NewAlcoholAmountRule builds the drinks-per-week evaluator.
func NewAlcoholAmountRule() (*AlcoholAmountRule, error) {
	binge, err := textnorm.NewMatcher([]string{"binge", "blackout", "blacked out", "until i pass out"})
	if err != nil {
		return nil, err
	}
	return &AlcoholAmountRule{binge: binge}, nil
}

func (r *AlcoholAmountRule) Name() string  { return "alcohol_amount" }
func (r *AlcoholAmountRule) Topic() string { return "alcohol_amount" }

func (r *AlcoholAmountRule) LocalCaps() map[focus.Area]float64 {
	return map[focus.Area]float64{dtx: 1.3, cm: 1.0, ga: 1.0, cog: 0.5, str: 0.5}
}

// Evaluate reads drinks per week from the numeric prefix of the answer.
func (r *AlcoholAmountRule) Evaluate(field FieldInput, ctx *Context) Result {
	var drinks float64
	switch field.Kind {
	case KindNumeric:
		drinks = field.Number
	case KindText, KindCategorical:
		v, ok := ParseNumericPrefix(field.Raw)
		if !ok {
			return Empty(FlagInvalidShape)
		}
		drinks = v
	default:
		return Empty(FlagInvalidShape)
	}
	if drinks <= 0 {
		return Result{}
	}

	heavyAt := 14.0
	if ctx != nil && textnorm.Normalize(ctx.Sex) == "female" {
		heavyAt = 7.0
	}

	res := Result{Contribution: Contribution{}}
	switch {
	case drinks > 2*heavyAt:
		res.Contribution = Contribution{dtx: 1.00, cm: 0.60, ga: 0.50, cog: 0.30, str: 0.20}
		res.Details = append(res.Details, Detail{Label: "extreme", MatchedText: field.Snippet(), Scores: res.Contribution.Clone()})
	case drinks > heavyAt:
		res.Contribution = Contribution{dtx: 0.70, cm: 0.40, ga: 0.30, cog: 0.15}
		res.Details = append(res.Details, Detail{Label: "heavy", MatchedText: field.Snippet(), Scores: res.Contribution.Clone()})
	case drinks > heavyAt/2:
		res.Contribution = Contribution{dtx: 0.30, cm: 0.15, ga: 0.15}
		res.Details = append(res.Details, Detail{Label: "moderate", MatchedText: field.Snippet(), Scores: res.Contribution.Clone()})
	default:
		res.Contribution = Contribution{dtx: 0.10}
		res.Details = append(res.Details, Detail{Label: "low", MatchedText: field.Snippet(), Scores: res.Contribution.Clone()})
	}

	if kw, ok := r.binge.MatchAny(field.Text); ok {
		add := Contribution{dtx: 0.30, cog: 0.20, str: 0.10}
		res.Contribution.Add(add)
		res.Details = append(res.Details, Detail{Label: "binge_pattern", MatchedText: kw, Scores: add})
	}
	return res
}

// defaultTraumaRule scores disclosed trauma history. Protective factors
// (trauma-focused therapy, regular mind-body practice) are negative rows.
// Crisis language in this field is handled by the safety interceptor, not
// by weights.
func defaultTraumaRule() (Rule, error) {
	return NewKeywordRule("trauma_history", "trauma", []KeywordEntry{
		{Label: "childhood_adversity", Keywords: []string{"childhood abuse", "child abuse", "adverse childhood", "neglect", "neglected", "abandoned", "foster care", "family violence"},
			Weights: Contribution{str: 0.20, imm: 0.20, ga: 0.20, cm: 0.10}},
		{Label: "ipv_sexual_violence", Keywords: []string{"sexual assault", "sexual abuse", "rape", "raped", "domestic violence", "domestic abuse", "abusive relationship", "sexual trauma"},
			Weights: Contribution{str: 0.20, cog: 0.20, imm: 0.10}},
		{Label: "combat_first_responder", Keywords: []string{"combat", "deployment", "deployed", "veteran", "military trauma", "first responder", "witnessed death"},
			Weights: Contribution{cog: 0.20, str: 0.20, cm: 0.10}},
		{Label: "accident_disaster", Keywords: []string{"car accident", "car crash", "natural disaster", "hurricane", "earthquake", "near death"},
			Weights: Contribution{str: 0.10, cog: 0.10}},
		{Label: "medical_trauma", Keywords: []string{"icu", "intensive care", "ventilator", "intubated", "medical trauma", "birth trauma", "traumatic birth"},
			Weights: Contribution{str: 0.20, cog: 0.10, ga: 0.10}},
		{Label: "chronic_discrimination", Keywords: []string{"discrimination", "bullying", "bullied", "harassment", "harassed", "hate crime"},
			Weights: Contribution{str: 0.10, cog: 0.10}},
		{Label: "repeated_chronic", Keywords: []string{"for years", "repeatedly", "multiple times", "ongoing", "chronic", "over and over", "prolonged"},
			Weights: Contribution{str: 0.20, cog: 0.10, imm: 0.10, ga: 0.10}},
		{Label: "ptsd_symptoms", Keywords: []string{"nightmare", "nightmares", "flashback", "flashbacks", "hypervigilant", "on edge", "jumpy", "intrusive memories"},
			Weights: Contribution{str: 0.20, cog: 0.20}},
		{Label: "trauma_focused_therapy", Keywords: []string{"emdr", "trauma therapy", "trauma counseling", "trauma focused"},
			Weights: Contribution{str: -0.20, cog: -0.10}},
		{Label: "mind_body_practice", Keywords: []string{"mindfulness", "meditation", "yoga", "breathing exercises", "tai chi", "qigong"},
			Weights: Contribution{str: -0.10, ga: -0.05}},
	}, Contribution{str: 0.70, cog: 0.40, imm: 0.30, cm: 0.20, ga: 0.20, mito: 0.20, skn: 0.10},
		map[focus.Area]float64{
			str: 1.5, cog: 1.0, imm: 0.7, ga: 0.7, cm: 0.6, mito: 0.5, skn: 0.3, dtx: 0.4, hrm: 0.3,
		})
}

func defaultMoodRule() (Rule, error) {
	return NewKeywordRule("mood", "mood", []KeywordEntry{
		{Label: "anxious", Keywords: []string{"anxious", "anxiety", "panic", "worried", "on edge", "overwhelmed"},
			Weights: Contribution{str: 0.40, cog: 0.20, ga: 0.10}},
		{Label: "depressed", Keywords: []string{"depressed", "depression", "hopeless", "sad", "down", "numb"},
			Weights: Contribution{cog: 0.40, str: 0.20, mito: 0.10}},
		{Label: "irritable", Keywords: []string{"irritable", "angry", "short tempered", "snappy"},
			Weights: Contribution{str: 0.30, cog: 0.10}},
		{Label: "exhausted", Keywords: []string{"exhausted", "drained", "fatigued", "no energy", "burned out", "burnout"},
			Weights: Contribution{mito: 0.30, str: 0.20, cog: 0.10}},
		{Label: "positive", Keywords: []string{"good", "great", "happy", "content", "peaceful", "relaxed"},
			Weights: Contribution{str: -0.10}},
	}, nil, map[focus.Area]float64{
		str: 0.8, cog: 0.6, ga: 0.3, mito: 0.4,
	})
}

// defaultOccupationRule detects shift-work occupations from the free-text
// job title. The shift-work signal also feeds the lifestyle synergies.
func defaultOccupationRule() (Rule, error) {
	return NewKeywordRule("occupation_shift_work", "occupation", []KeywordEntry{
		{Label: "shift_work", Keywords: []string{
			"nurse", "physician", "emt", "paramedic", "doctor", "resident",
			"security", "police", "firefighter", "fire fighter",
			"hotel", "restaurant", "chef", "bartender", "server",
			"factory", "warehouse", "logistics", "driver", "trucker",
			"airline", "flight attendant", "pilot",
			"call center", "night", "rotating", "graveyard", "shift",
		},
			Weights: Contribution{str: 0.30, mito: 0.20, hrm: 0.15}},
	}, nil, map[focus.Area]float64{
		str: 0.5, mito: 0.4, hrm: 0.3,
	})
}

func defaultSleepHoursRule() (Rule, error) {
	return NewNumericThresholdRule("sleep_hours", "sleep_hours", []Band{
		{Label: "severe_short", Min: 0, Max: 5, Weights: Contribution{str: 0.50, cog: 0.40, mito: 0.40, cm: 0.30, imm: 0.20}},
		{Label: "short", Min: 5, Max: 6.5, Weights: Contribution{str: 0.30, cog: 0.25, mito: 0.25, cm: 0.20}},
		{Label: "adequate", Min: 6.5, Max: 9, Weights: Contribution{}},
		{Label: "long", Min: 9, Max: math.Inf(1), Weights: Contribution{mito: 0.20, cog: 0.15}},
	}, nil)
}

// Biomarker rules band the numeric prefix of unit-suffixed lab readings.
func defaultBiomarkerRules() ([]Rule, error) {
	hba1c, err := NewNumericThresholdRule("biomarker_hba1c", "hba1c", []Band{
		{Label: "normal", Min: 0, Max: 5.7, Weights: Contribution{}},
		{Label: "prediabetic", Min: 5.7, Max: 6.5, Weights: Contribution{cm: 0.40, mito: 0.15}},
		{Label: "diabetic", Min: 6.5, Max: math.Inf(1), Weights: Contribution{cm: 0.80, mito: 0.25, dtx: 0.20}},
	}, nil)
	if err != nil {
		return nil, err
	}
	crp, err := NewNumericThresholdRule("biomarker_crp", "crp", []Band{
		{Label: "normal", Min: 0, Max: 1, Weights: Contribution{}},
		{Label: "elevated", Min: 1, Max: 3, Weights: Contribution{imm: 0.30, cm: 0.15}},
		{Label: "high", Min: 3, Max: math.Inf(1), Weights: Contribution{imm: 0.60, cm: 0.30}},
	}, nil)
	if err != nil {
		return nil, err
	}
	alt, err := NewNumericThresholdRule("biomarker_alt", "alt", []Band{
		{Label: "normal", Min: 0, Max: 40, Weights: Contribution{}},
		{Label: "elevated", Min: 40, Max: 80, Weights: Contribution{dtx: 0.40, ga: 0.10}},
		{Label: "high", Min: 80, Max: math.Inf(1), Weights: Contribution{dtx: 0.70, ga: 0.20, cm: 0.10}},
	}, nil)
	if err != nil {
		return nil, err
	}
	return []Rule{hba1c, crp, alt}, nil
}

// DefaultRegistry builds the registry of built-in topical rules.
func DefaultRegistry() (*Registry, error) {
	builders := []func() (Rule, error){
		defaultAgeRule,
		defaultBMIRule,
		defaultHeightRule,
		defaultDiagnosisRule,
		defaultAlcoholRule,
		func() (Rule, error) { return NewAlcoholAmountRule() },
		defaultTraumaRule,
		defaultMoodRule,
		defaultOccupationRule,
		defaultSleepHoursRule,
	}
	var rs []Rule
	for _, build := range builders {
		r, err := build()
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	bio, err := defaultBiomarkerRules()
	if err != nil {
		return nil, err
	}
	rs = append(rs, bio...)
	return NewRegistry(rs...)
}

// MustDefaultRegistry panics on table errors; the tables are static, so a
// failure here is a programming error caught in tests.
func MustDefaultRegistry() *Registry {
	reg, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return reg
}
