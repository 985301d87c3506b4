// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"math"
)

// ValidateEntry validates an Entry according to domain rules.
//
// Validation rules:
//   - URL must not be empty
//   - RelevanceScore must be within [0,1]
//   - RelevanceScore must be at least threshold
//
// NOT validated:
//   - Tags (may be empty when nothing was recognized)
//   - Text (snippet-only hits are valid)
func ValidateEntry(entry *Entry, threshold float64) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}

	if entry.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntry, ErrEmptyURL)
	}

	if !ValidScore(entry.RelevanceScore) {
		return fmt.Errorf("%w: %w: %v", ErrInvalidEntry, ErrScoreOutOfRange, entry.RelevanceScore)
	}

	if entry.RelevanceScore < threshold {
		return fmt.Errorf("%w: score %.3f below threshold %.3f", ErrInvalidEntry, entry.RelevanceScore, threshold)
	}

	return nil
}

// ValidScore reports whether s is a finite value within [0,1].
func ValidScore(s float64) bool {
	return !math.IsNaN(s) && s >= 0 && s <= 1
}

// ClampScore forces s into [0,1]. NaN becomes 0.
func ClampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// ValidateAgentSpec validates an AgentSpec.
func ValidateAgentSpec(spec *AgentSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: spec is nil", ErrInvalidAgentSpec)
	}
	if spec.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrInvalidAgentSpec)
	}
	if spec.MaxSearches < 1 {
		return fmt.Errorf("%w: %s: max searches must be at least 1", ErrInvalidAgentSpec, spec.ID)
	}
	if !spec.Strategy.Valid() {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAgentSpec, spec.ID, ErrUnknownStrategy)
	}
	if spec.Exploration < 0 || spec.Exploration > 1 {
		return fmt.Errorf("%w: %s: exploration must be within [0,1]", ErrInvalidAgentSpec, spec.ID)
	}
	if spec.Shard.Count > 0 && (spec.Shard.Index < 0 || spec.Shard.Index >= spec.Shard.Count) {
		return fmt.Errorf("%w: %s: shard index %d out of range", ErrInvalidAgentSpec, spec.ID, spec.Shard.Index)
	}
	return nil
}
