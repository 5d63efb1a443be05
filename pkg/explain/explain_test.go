package explain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aether-health/focus-engine/pkg/focus"
)

func rec(rule string, delta float64) Record {
	return Record{Rule: rule, Topic: rule, Delta: delta}
}

func TestTrackerTopOrdersByAbsoluteDelta(t *testing.T) {
	tr := NewTracker(2)
	tr.Add(focus.StressAxis, rec("small", 0.1))
	tr.Add(focus.StressAxis, rec("protective", -0.9))
	tr.Add(focus.StressAxis, rec("medium", 0.5))

	top := tr.Top(focus.StressAxis)
	require.Len(t, top, 2)
	assert.Equal(t, "protective", top[0].Rule, "negative deltas rank by magnitude")
	assert.Equal(t, "medium", top[1].Rule)
}

func TestTrackerTiesAtCutoffIncluded(t *testing.T) {
	tr := NewTracker(2)
	tr.Add(focus.Gut, rec("a", 0.8))
	tr.Add(focus.Gut, rec("b", 0.5))
	tr.Add(focus.Gut, rec("c", 0.5))
	tr.Add(focus.Gut, rec("d", -0.5))
	tr.Add(focus.Gut, rec("e", 0.2))

	top := tr.Top(focus.Gut)
	require.Len(t, top, 4, "records tied with the cutoff are all kept")
	assert.Equal(t, "a", top[0].Rule)
}

func TestTrackerDropsZeroDeltas(t *testing.T) {
	tr := NewTracker(3)
	tr.Add(focus.Detox, rec("noop", 0))
	assert.Zero(t, tr.Count(focus.Detox))
	assert.Nil(t, tr.Top(focus.Detox))
}

func TestTrackerMinimumDepth(t *testing.T) {
	tr := NewTracker(0)
	tr.Add(focus.Immune, rec("a", 0.3))
	tr.Add(focus.Immune, rec("b", 0.6))
	assert.Len(t, tr.Top(focus.Immune), 1)
}

func TestTrackerStableForEqualDeltas(t *testing.T) {
	tr := NewTracker(3)
	tr.Add(focus.Skin, rec("first", 0.4))
	tr.Add(focus.Skin, rec("second", 0.4))

	top := tr.Top(focus.Skin)
	require.Len(t, top, 2)
	assert.Equal(t, "first", top[0].Rule, "insertion order breaks exact ties")
}

func TestTopAll(t *testing.T) {
	tr := NewTracker(1)
	tr.Add(focus.Cardiometabolic, rec("a", 0.8))
	tr.Add(focus.Gut, rec("b", 0.2))

	all := tr.TopAll()
	assert.Len(t, all, 2)
	assert.Len(t, all[focus.Cardiometabolic], 1)
}
