package fragmentedqueue

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/timzifer/fragmented_queue/internal/vecmath"
)

const (
	// FeatureGroupThreshold is the strength at or above which an entry fills
	// its feature group.
	FeatureGroupThreshold = 0.6
	// FeatureIndexThreshold is the strength above which an entry counts as
	// content rather than padding.
	FeatureIndexThreshold = 0.1
)

// FeatureSummary describes the strongest entry of one feature group.
type FeatureSummary struct {
	Group    []int
	Index    int
	Strength float64
	Vector   []float64
}

// FindFeatureGroups partitions the entry indexes into contiguous groups. A
// group stays open until it has seen a strength of at least
// FeatureGroupThreshold; the next weaker entry after that starts a new group.
// The result always contains at least one group, which is empty for an
// empty queue.
func (q *Queue) FindFeatureGroups() [][]int {
	groups := [][]int{{}}
	filled := false
	for i, e := range q.entries {
		if filled && e.Strength < FeatureGroupThreshold {
			groups = append(groups, []int{})
			filled = false
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], i)
		if e.Strength >= FeatureGroupThreshold {
			filled = true
		}
	}

	q.logger.Debug("feature groups found",
		zap.Int("groups", len(groups)),
		zap.Int("steps_per_group", len(q.entries)/len(groups)))
	return groups
}

// FeatureIndexes returns the indexes whose strength exceeds
// FeatureIndexThreshold, in queue order.
func (q *Queue) FeatureIndexes() []int {
	var indexes []int
	for i, e := range q.entries {
		if e.Strength > FeatureIndexThreshold {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// FeatureSummaries returns the strongest entry of every non-empty feature
// group. Ties keep the earliest index.
func (q *Queue) FeatureSummaries() []FeatureSummary {
	groups := q.FindFeatureGroups()
	summaries := make([]FeatureSummary, 0, len(groups))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		best := group[0]
		for _, idx := range group[1:] {
			if q.entries[idx].Strength > q.entries[best].Strength {
				best = idx
			}
		}
		summaries = append(summaries, FeatureSummary{
			Group:    group,
			Index:    best,
			Strength: q.entries[best].Strength,
			Vector:   vecmath.Clone(q.entries[best].Vector),
		})
	}
	return summaries
}

// LogFeatureGroups writes one info record per feature group summary.
func (q *Queue) LogFeatureGroups() {
	for _, s := range q.FeatureSummaries() {
		q.logger.Info("feature",
			zap.Int("time_step", s.Index),
			zap.Float64("strength", s.Strength),
			zap.Float64s("vector", s.Vector))
	}
}

// FeatureMatrix returns copies of the vectors at FeatureIndexes, one row per
// feature.
func (q *Queue) FeatureMatrix() [][]float64 {
	indexes := q.FeatureIndexes()
	rows := make([][]float64, len(indexes))
	for i, idx := range indexes {
		rows[i] = vecmath.Clone(q.entries[idx].Vector)
	}
	return rows
}

// InitFromFeatureMatrix replaces the queue content with a sparse expansion of
// matrix: feature k is placed at index (k+1)*spacing-1 with strength 1 and
// every other position holds a zero vector with strength 0. On error the
// queue is left unchanged.
func (q *Queue) InitFromFeatureMatrix(matrix [][]float64, spacing int) error {
	if spacing < 1 {
		return fmt.Errorf("%w: feature spacing %d", ErrIndexOutOfRange, spacing)
	}
	width := 0
	if len(matrix) > 0 {
		width = len(matrix[0])
	}
	for i, row := range matrix {
		if len(row) != width {
			return fmt.Errorf("%w: feature row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), width)
		}
	}

	entries := make([]Entry, 0, spacing*len(matrix))
	total := 0.0
	feature := 0
	for i := 0; i < spacing*len(matrix); i++ {
		if (i+1)%spacing == 0 {
			entries = append(entries, Entry{Vector: vecmath.Clone(matrix[feature]), Strength: 1})
			total++
			feature++
			continue
		}
		entries = append(entries, Entry{Vector: vecmath.Zeros(width), Strength: 0})
	}

	q.setEntries(entries, total)
	return nil
}

func (q *Queue) setEntries(entries []Entry, total float64) {
	if len(entries) == 0 {
		entries = nil
		total = 0
	}
	q.entries = entries
	q.totalStrength = total
}
