package focus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaValid(t *testing.T) {
	for _, a := range All() {
		assert.True(t, a.Valid(), "declared area %q", a)
	}
	assert.False(t, Area("CARDIO").Valid())
	assert.False(t, Area("").Valid())
}

func TestPriorityIsStrictTotalOrder(t *testing.T) {
	seen := make(map[int]bool)
	for _, a := range All() {
		p := a.Priority()
		assert.False(t, seen[p], "duplicate priority %d for %q", p, a)
		seen[p] = true
	}
	assert.Equal(t, len(All()), Area("UNKNOWN").Priority(), "undeclared areas sort last")
}

func TestNewScoreVectorCoversAllAreas(t *testing.T) {
	v := NewScoreVector()
	assert.Len(t, v, len(All()))
	for _, a := range All() {
		assert.Zero(t, v[a])
	}
}

func TestScoreVectorCloneIsIndependent(t *testing.T) {
	v := NewScoreVector()
	v[StressAxis] = 1.5
	c := v.Clone()
	c[StressAxis] = 9
	assert.Equal(t, 1.5, v[StressAxis])
}
