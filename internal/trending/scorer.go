// Package trending ranks story clusters. The score is a pure function of the
// cluster's distinct sources, its member timestamps and the current time, so
// recomputing with unchanged membership always reproduces the same value.
package trending

import (
	"math"
	"time"
)

// Weights tune the three score components. They come from configuration so
// ranking behavior can change without a rebuild.
type Weights struct {
	Sources  float64 `yaml:"sources"`
	Recency  float64 `yaml:"recency"`
	Velocity float64 `yaml:"velocity"`
}

func DefaultWeights() Weights {
	return Weights{Sources: 3.0, Recency: 2.0, Velocity: 1.5}
}

const (
	// DefaultHorizon is how long after its newest member a cluster keeps any
	// recency boost.
	DefaultHorizon = 24 * time.Hour
	// DefaultVelocityWindow is the trailing window for the velocity component.
	DefaultVelocityWindow = 30 * time.Minute
)

type Scorer struct {
	weights        Weights
	horizon        time.Duration
	velocityWindow time.Duration
}

type ScorerOption func(*Scorer)

func WithWeights(w Weights) ScorerOption {
	return func(s *Scorer) { s.weights = w }
}

func WithHorizon(d time.Duration) ScorerOption {
	return func(s *Scorer) { s.horizon = d }
}

func WithVelocityWindow(d time.Duration) ScorerOption {
	return func(s *Scorer) { s.velocityWindow = d }
}

func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		weights:        DefaultWeights(),
		horizon:        DefaultHorizon,
		velocityWindow: DefaultVelocityWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes
//
//	w1*log(1+distinctSources) + w2*recencyBoost + w3*velocity
//
// where recencyBoost decays from 1 at the newest member's timestamp to zero
// past the horizon, and velocity is the per-minute rate of members inside the
// trailing window. memberTimes are the publish (or fetch) timestamps of the
// cluster's members; order does not matter.
func (s *Scorer) Score(distinctSources int, memberTimes []time.Time, now time.Time) float64 {
	sources := s.weights.Sources * math.Log(1+float64(max(distinctSources, 0)))
	recency := s.weights.Recency * s.recencyBoost(memberTimes, now)
	velocity := s.weights.Velocity * s.velocity(memberTimes, now)
	return sources + recency + velocity
}

// recencyBoost is 1/(1+ageHours) for the newest member, clamped to zero once
// the age passes the horizon.
func (s *Scorer) recencyBoost(memberTimes []time.Time, now time.Time) float64 {
	newest := newestTime(memberTimes)
	if newest.IsZero() || newest.After(now) {
		if newest.IsZero() {
			return 0
		}
		return 1
	}

	age := now.Sub(newest)
	if age >= s.horizon {
		return 0
	}
	return 1 / (1 + age.Hours())
}

// velocity counts members inside the trailing window, normalized to a
// per-minute rate.
func (s *Scorer) velocity(memberTimes []time.Time, now time.Time) float64 {
	cutoff := now.Add(-s.velocityWindow)
	recent := 0
	for _, ts := range memberTimes {
		if ts.After(cutoff) && !ts.After(now) {
			recent++
		}
	}
	return float64(recent) / s.velocityWindow.Minutes()
}

func newestTime(times []time.Time) time.Time {
	var newest time.Time
	for _, ts := range times {
		if ts.After(newest) {
			newest = ts
		}
	}
	return newest
}
