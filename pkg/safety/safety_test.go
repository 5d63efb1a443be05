package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-health/focus-engine/pkg/textnorm"
)

func newInterceptor(t *testing.T) *Interceptor {
	t.Helper()
	i, err := NewInterceptor(DefaultLexicon())
	require.NoError(t, err)
	return i
}

func TestScanText(t *testing.T) {
	i := newInterceptor(t)

	tests := []struct {
		name string
		text string
		want []Kind
	}{
		{name: "clean text", text: "i feel tired most days", want: nil},
		{name: "crisis phrase", text: "sometimes i think about ending it all, i want to end my life", want: []Kind{KindCrisis}},
		{name: "urgent symptom", text: "crushing chest pain since this morning", want: []Kind{KindUrgentCare}},
		{name: "clinical review", text: "currently pregnant, second trimester", want: []Kind{KindClinicalReview}},
		{name: "multiple kinds", text: "chest pain and i want to hurt myself", want: []Kind{KindCrisis, KindUrgentCare}},
		{name: "empty", text: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := i.ScanText(textnorm.Normalize(tt.text))
			var kinds []Kind
			for _, h := range hits {
				kinds = append(kinds, h.Kind)
			}
			assert.Equal(t, tt.want, kinds)
		})
	}
}

func TestScanTextRecordsTrigger(t *testing.T) {
	i := newInterceptor(t)
	hits := i.ScanText("i don't want to live anymore")
	require.Len(t, hits, 1)
	assert.Equal(t, KindCrisis, hits[0].Kind)
	assert.Equal(t, "don't want to live", hits[0].Trigger)
}

func TestScanFlags(t *testing.T) {
	i := newInterceptor(t)

	hits := i.ScanFlags([]string{"validation_warning:invalid_shape", "safety:crisis"})
	require.Len(t, hits, 1)
	assert.Equal(t, KindCrisis, hits[0].Kind)

	assert.Empty(t, i.ScanFlags(nil))
}

func TestFlagSetMonotonic(t *testing.T) {
	s := NewFlagSet()
	assert.False(t, s.Any())
	assert.False(t, s.Raised(KindCrisis))

	assert.True(t, s.Raise(KindCrisis, "end my life"), "first raise is the transition")
	assert.False(t, s.Raise(KindCrisis, "hurt myself"), "later raises record evidence only")
	assert.True(t, s.Raised(KindCrisis))
	assert.True(t, s.Any())

	flags := s.Flags()
	require.Len(t, flags, 1)
	assert.Equal(t, KindCrisis, flags[0].Kind)
	assert.Equal(t, []string{"end my life", "hurt myself"}, flags[0].Triggers)
}

func TestFlagSetIndependentKinds(t *testing.T) {
	s := NewFlagSet()
	assert.True(t, s.Raise(KindUrgentCare, "chest pain"))
	assert.True(t, s.Raise(KindCrisis, "suicidal"))
	assert.False(t, s.Raised(KindClinicalReview))

	flags := s.Flags()
	require.Len(t, flags, 2)
	// Sorted by kind for deterministic reports.
	assert.Equal(t, KindCrisis, flags[0].Kind)
	assert.Equal(t, KindUrgentCare, flags[1].Kind)
}
