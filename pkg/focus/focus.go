// Package focus defines the closed set of physiological focus areas that the
// scoring engine ranks, and the score vector accumulated over one run.
package focus

// Area is a focus-area domain code. The set is closed: only the codes
// declared below are accepted anywhere in the engine.
type Area string

const (
	Cardiometabolic Area = "CM"   // Cardiometabolic & Metabolic Health
	Cognitive       Area = "COG"  // Cognitive & Mental Health
	Detox           Area = "DTX"  // Detoxification & Biotransformation
	Immune          Area = "IMM"  // Immune Function & Inflammation
	Mitochondrial   Area = "MITO" // Mitochondrial & Energy Metabolism
	Skin            Area = "SKN"  // Skin & Barrier Function
	StressAxis      Area = "STR"  // Stress-Axis & Nervous System Resilience
	Hormonal        Area = "HRM"  // Hormonal Health (Transport)
	Gut             Area = "GA"   // Gut Health and Assimilation
)

// areaOrder is the declared ranking priority, used to break score ties.
var areaOrder = [...]Area{
	Cardiometabolic,
	Cognitive,
	Detox,
	Immune,
	Mitochondrial,
	Skin,
	StressAxis,
	Hormonal,
	Gut,
}

var areaNames = map[Area]string{
	Cardiometabolic: "Cardiometabolic & Metabolic Health",
	Cognitive:       "Cognitive & Mental Health",
	Detox:           "Detoxification & Biotransformation",
	Immune:          "Immune Function & Inflammation",
	Mitochondrial:   "Mitochondrial & Energy Metabolism",
	Skin:            "Skin & Barrier Function",
	StressAxis:      "Stress-Axis & Nervous System Resilience",
	Hormonal:        "Hormonal Health (Transport)",
	Gut:             "Gut Health and Assimilation",
}

var areaPriority = buildPriority()

func buildPriority() map[Area]int {
	p := make(map[Area]int, len(areaOrder))
	for i, a := range areaOrder {
		p[a] = i
	}
	return p
}

// All returns every declared area in priority order. The returned slice is a
// copy and safe to mutate.
func All() []Area {
	out := make([]Area, len(areaOrder))
	copy(out, areaOrder[:])
	return out
}

// Valid reports whether a belongs to the declared set.
func (a Area) Valid() bool {
	_, ok := areaPriority[a]
	return ok
}

// DisplayName returns the human-readable name for the area, or the raw code
// if the area is not declared.
func (a Area) DisplayName() string {
	if name, ok := areaNames[a]; ok {
		return name
	}
	return string(a)
}

// Priority returns the tie-break rank of the area (lower ranks first).
// Undeclared areas sort last.
func (a Area) Priority() int {
	if p, ok := areaPriority[a]; ok {
		return p
	}
	return len(areaOrder)
}

// ScoreVector accumulates per-area scores for a single run. It is owned
// exclusively by the aggregator for that run.
type ScoreVector map[Area]float64

// NewScoreVector returns a vector initialized to zero for every declared area.
func NewScoreVector() ScoreVector {
	v := make(ScoreVector, len(areaOrder))
	for _, a := range areaOrder {
		v[a] = 0
	}
	return v
}

// Clone returns an independent copy of the vector.
func (v ScoreVector) Clone() ScoreVector {
	out := make(ScoreVector, len(v))
	for a, s := range v {
		out[a] = s
	}
	return out
}
