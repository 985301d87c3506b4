package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name      string
		entry     *Entry
		threshold float64
		wantErr   error
	}{
		{
			name:      "valid entry",
			entry:     &Entry{URL: "https://icar.org.in/rice", RelevanceScore: 0.7},
			threshold: 0.3,
			wantErr:   nil,
		},
		{
			name:      "score equal to threshold",
			entry:     &Entry{URL: "https://icar.org.in/rice", RelevanceScore: 0.3},
			threshold: 0.3,
			wantErr:   nil,
		},
		{
			name:      "nil entry",
			entry:     nil,
			threshold: 0,
			wantErr:   ErrInvalidEntry,
		},
		{
			name:      "empty url",
			entry:     &Entry{RelevanceScore: 0.5},
			threshold: 0,
			wantErr:   ErrEmptyURL,
		},
		{
			name:      "score above one",
			entry:     &Entry{URL: "https://a.org", RelevanceScore: 1.2},
			threshold: 0,
			wantErr:   ErrScoreOutOfRange,
		},
		{
			name:      "negative score",
			entry:     &Entry{URL: "https://a.org", RelevanceScore: -0.1},
			threshold: 0,
			wantErr:   ErrScoreOutOfRange,
		},
		{
			name:      "below threshold",
			entry:     &Entry{URL: "https://a.org", RelevanceScore: 0.1},
			threshold: 0.3,
			wantErr:   ErrInvalidEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntry(tt.entry, tt.threshold)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateEntry() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateEntry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-1, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{7, 1},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateAgentSpec(t *testing.T) {
	valid := AgentSpec{ID: "agent-0", MaxSearches: 5, Strategy: StrategyStatic}
	if err := ValidateAgentSpec(&valid); err != nil {
		t.Fatalf("ValidateAgentSpec() unexpected error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(s *AgentSpec)
	}{
		{"empty id", func(s *AgentSpec) { s.ID = "" }},
		{"zero budget", func(s *AgentSpec) { s.MaxSearches = 0 }},
		{"unknown strategy", func(s *AgentSpec) { s.Strategy = 0 }},
		{"exploration above one", func(s *AgentSpec) { s.Exploration = 1.5 }},
		{"shard out of range", func(s *AgentSpec) { s.Shard = Shard{Index: 3, Count: 3} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			if err := ValidateAgentSpec(&spec); !errors.Is(err, ErrInvalidAgentSpec) {
				t.Errorf("ValidateAgentSpec() error = %v, want ErrInvalidAgentSpec", err)
			}
		})
	}
	if err := ValidateAgentSpec(nil); !errors.Is(err, ErrInvalidAgentSpec) {
		t.Errorf("ValidateAgentSpec(nil) error = %v", err)
	}
}
