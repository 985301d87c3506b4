package learning

import (
	"math"
	"sort"
)

// weightEpsilon is the tolerance under which two weights are considered equal.
const weightEpsilon = 1e-9

// ComputeWeights returns one selection weight per pattern. It is pure.
//
// An exhausted pattern weighs 0. Otherwise the weight is
//
//	exploration + (1-exploration) * quality
//
// where quality is the smoothed success rate, scaled by average relevance once
// the pattern produced entries. Untried patterns have quality 0.5, so every
// live pattern keeps a positive weight.
func ComputeWeights(patterns []PatternKey, view View, exploration float64) []float64 {
	exploration = math.Max(0, math.Min(1, exploration))
	weights := make([]float64, len(patterns))
	for i, key := range patterns {
		stats := view.Stats(key)
		if stats.Exhausted {
			continue
		}
		quality := stats.SuccessRate()
		if stats.Accepted > 0 {
			quality *= 0.5 + 0.5*stats.Relevance
		}
		weights[i] = exploration + (1-exploration)*quality
	}
	return weights
}

// UniformWeights weighs every live pattern 1, which makes Select rotate
// patterns least-recently-used first.
func UniformWeights(patterns []PatternKey, view View) []float64 {
	weights := make([]float64, len(patterns))
	for i, key := range patterns {
		if !view.Stats(key).Exhausted {
			weights[i] = 1
		}
	}
	return weights
}

// Select picks an index by weighted sampling driven by r in [0,1). It is pure.
//
// Patterns with equal weight form a group; r chooses a group with probability
// proportional to its total weight, and within the group the pattern with
// the smallest lastUsed wins (lowest index on ties). It returns -1 when every
// weight is zero.
func Select(weights []float64, lastUsed []int, r float64) int {
	type group struct {
		weight  float64
		members []int
	}
	var groups []*group
	total := 0.0
	for i, w := range weights {
		if w <= 0 || math.IsNaN(w) {
			continue
		}
		total += w
		var g *group
		for _, cand := range groups {
			if math.Abs(cand.weight-w) < weightEpsilon {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{weight: w}
			groups = append(groups, g)
		}
		g.members = append(g.members, i)
	}
	if len(groups) == 0 {
		return -1
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].weight > groups[j].weight
	})

	r = math.Max(0, math.Min(r, math.Nextafter(1, 0)))
	target := r * total
	chosen := groups[len(groups)-1]
	acc := 0.0
	for _, g := range groups {
		acc += g.weight * float64(len(g.members))
		if target < acc {
			chosen = g
			break
		}
	}

	best := chosen.members[0]
	for _, idx := range chosen.members[1:] {
		if used(lastUsed, idx) < used(lastUsed, best) {
			best = idx
		}
	}
	return best
}

func used(lastUsed []int, i int) int {
	if i < len(lastUsed) {
		return lastUsed[i]
	}
	return 0
}
