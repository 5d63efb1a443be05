// Package explain collects per-rule contribution records during a scoring
// run and selects the top contributors per focus area for the report.
package explain

import (
	"sort"

	"github.com/aether-health/focus-engine/pkg/focus"
)

// Record is one rule's contribution to one focus area, with the matched
// evidence and the modifiers that shaped it.
type Record struct {
	Rule      string
	Topic     string
	Label     string
	Matched   string
	Delta     float64
	Modifiers []string
}

// Tracker accumulates records per focus area. It is used by a single
// goroutine during the fold phase; it is not safe for concurrent use.
type Tracker struct {
	topN    int
	records map[focus.Area][]Record
}

// NewTracker builds a tracker keeping the top n contributors per area.
// n < 1 falls back to 1.
func NewTracker(n int) *Tracker {
	if n < 1 {
		n = 1
	}
	return &Tracker{topN: n, records: make(map[focus.Area][]Record)}
}

// Add records one contribution. Zero deltas carry no explanatory weight
// and are dropped.
func (t *Tracker) Add(area focus.Area, rec Record) {
	if rec.Delta == 0 {
		return
	}
	t.records[area] = append(t.records[area], rec)
}

// Count returns the number of recorded contributions for an area.
func (t *Tracker) Count(area focus.Area) int { return len(t.records[area]) }

// Top returns the strongest contributors for an area, ordered by absolute
// delta descending. Records tied with the one at the cutoff are all
// included, so the result may exceed n.
func (t *Tracker) Top(area focus.Area) []Record {
	recs := t.records[area]
	if len(recs) == 0 {
		return nil
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		return abs(out[i].Delta) > abs(out[j].Delta)
	})
	if len(out) <= t.topN {
		return out
	}
	cut := t.topN
	cutoff := abs(out[cut-1].Delta)
	for cut < len(out) && abs(out[cut].Delta) == cutoff {
		cut++
	}
	return out[:cut]
}

// TopAll returns the top contributors for every area with at least one
// record.
func (t *Tracker) TopAll() map[focus.Area][]Record {
	out := make(map[focus.Area][]Record, len(t.records))
	for area := range t.records {
		out[area] = t.Top(area)
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
