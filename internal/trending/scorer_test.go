package trending

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer()
	times := []time.Time{
		anchor.Add(-5 * time.Minute),
		anchor.Add(-20 * time.Minute),
		anchor.Add(-3 * time.Hour),
	}

	first := s.Score(4, times, anchor)
	second := s.Score(4, times, anchor)

	assert.Equal(t, first, second, "same inputs must reproduce the same score")
}

func TestScore_ComponentBreakdown(t *testing.T) {
	s := NewScorer(WithWeights(Weights{Sources: 1, Recency: 1, Velocity: 1}))

	// One member published 30 minutes ago: outside the velocity window
	// (strictly after the cutoff counts), recency = 1/(1+0.5).
	times := []time.Time{anchor.Add(-30 * time.Minute)}
	got := s.Score(2, times, anchor)

	want := math.Log(3) + 1/(1+0.5) + 0.0
	assert.InDelta(t, want, got, 1e-9)
}

func TestScore_MoreSourcesRankHigher(t *testing.T) {
	s := NewScorer()
	times := []time.Time{anchor.Add(-time.Hour)}

	assert.Greater(t, s.Score(5, times, anchor), s.Score(1, times, anchor))
}

func TestScore_FresherClusterRanksHigher(t *testing.T) {
	s := NewScorer()

	fresh := s.Score(2, []time.Time{anchor.Add(-10 * time.Minute)}, anchor)
	old := s.Score(2, []time.Time{anchor.Add(-6 * time.Hour)}, anchor)

	assert.Greater(t, fresh, old)
}

func TestScore_RecencyZeroPastHorizon(t *testing.T) {
	s := NewScorer(WithWeights(Weights{Sources: 0, Recency: 1, Velocity: 0}))

	times := []time.Time{anchor.Add(-25 * time.Hour)}
	assert.Zero(t, s.Score(3, times, anchor))
}

func TestScore_VelocityCountsTrailingWindowOnly(t *testing.T) {
	s := NewScorer(WithWeights(Weights{Sources: 0, Recency: 0, Velocity: 1}))

	times := []time.Time{
		anchor.Add(-5 * time.Minute),  // inside
		anchor.Add(-29 * time.Minute), // inside
		anchor.Add(-31 * time.Minute), // outside
		anchor.Add(-2 * time.Hour),    // outside
	}

	assert.InDelta(t, 2.0/30.0, s.Score(1, times, anchor), 1e-9)
}

func TestScore_NoMembers(t *testing.T) {
	s := NewScorer()
	assert.Zero(t, s.Score(0, nil, anchor))
}

func TestScore_CustomWeightsSwapRanking(t *testing.T) {
	manySources := []time.Time{anchor.Add(-12 * time.Hour)}
	burst := []time.Time{anchor.Add(-time.Minute), anchor.Add(-2 * time.Minute), anchor.Add(-3 * time.Minute)}

	sourceHeavy := NewScorer(WithWeights(Weights{Sources: 10, Recency: 0, Velocity: 0}))
	assert.Greater(t, sourceHeavy.Score(8, manySources, anchor), sourceHeavy.Score(1, burst, anchor))

	velocityHeavy := NewScorer(WithWeights(Weights{Sources: 0, Recency: 0, Velocity: 10}))
	assert.Greater(t, velocityHeavy.Score(1, burst, anchor), velocityHeavy.Score(8, manySources, anchor))
}
