package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}

	if IDFromContent("rice") == IDFromContent("wheat") {
		t.Error("IDFromContent() collided for different content")
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"static", StrategyStatic, false},
		{"Enumerated", StrategyStatic, false},
		{" adaptive ", StrategyAdaptive, false},
		{"generative", StrategyAdaptive, false},
		{"LLM", StrategyLLM, false},
		{"random", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if StrategyAdaptive.String() != "adaptive" {
		t.Errorf("String() = %q", StrategyAdaptive.String())
	}
	if StrategyLLM.String() != "llm" || !StrategyLLM.Valid() {
		t.Errorf("StrategyLLM = %q, valid %v", StrategyLLM.String(), StrategyLLM.Valid())
	}
	if Strategy(0).Valid() || Strategy(4).Valid() {
		t.Error("out of range strategies must not be valid")
	}
}

func TestAgentStateTerminal(t *testing.T) {
	for _, s := range []AgentState{AgentExhausted, AgentStopped, AgentFailed} {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	for _, s := range []AgentState{AgentIdle, AgentQuerying, AgentFetching, AgentScoring, AgentAdmitting, AgentEmitting} {
		if s.Terminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
	if AgentFetching.String() != "fetching" {
		t.Errorf("String() = %q", AgentFetching.String())
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"drops query and fragment", "https://icar.org.in/rice?utm_source=x#top", "https://icar.org.in/rice"},
		{"folds http and www", "http://www.ICAR.org.in/rice/", "https://icar.org.in/rice"},
		{"drops default port", "https://icar.org.in:443/rice", "https://icar.org.in/rice"},
		{"keeps custom port", "https://icar.org.in:8080/rice", "https://icar.org.in:8080/rice"},
		{"root path", "https://icar.org.in/", "https://icar.org.in"},
		{"drops user info", "https://user:pw@icar.org.in/a", "https://icar.org.in/a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if err != nil {
				t.Fatalf("NormalizeURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := NormalizeURL(""); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("empty url error = %v", err)
	}
	if _, err := NormalizeURL("not a url"); !errors.Is(err, ErrInvalidURL) {
		t.Errorf("hostless url error = %v", err)
	}
}

func TestFingerprintText(t *testing.T) {
	a := FingerprintText("Rice  yields in Punjab, 2024!")
	b := FingerprintText("rice yields in punjab 2024")
	if a != b {
		t.Errorf("normalized variants should share a fingerprint: %s vs %s", a, b)
	}
	if a == FingerprintText("wheat yields in punjab 2024") {
		t.Error("different content should not share a fingerprint")
	}
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex chars", len(a))
	}
}

func TestDomainOf(t *testing.T) {
	if got := DomainOf("https://www.Agricoop.gov.in/schemes"); got != "agricoop.gov.in" {
		t.Errorf("DomainOf() = %q", got)
	}
	if got := DomainOf("::"); got != "" {
		t.Errorf("DomainOf(invalid) = %q", got)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	transient := NewTransientFetchError("rice", errors.New("503"))
	permanent := NewPermanentFetchError("rice", errors.New("404"))

	if !IsTransient(transient) {
		t.Error("transient fetch error should be transient")
	}
	if IsTransient(permanent) {
		t.Error("permanent fetch error should not be transient")
	}
	if !IsTransient(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)) {
		t.Error("deadline exceeded should be transient")
	}
	if IsTransient(nil) {
		t.Error("nil should not be transient")
	}

	if !IsFatal(&WriteError{Err: errors.New("disk full")}) {
		t.Error("write errors should be fatal")
	}
	if !IsFatal(fmt.Errorf("start: %w", &ConfigError{Field: "num_agents", Err: errors.New("bad")})) {
		t.Error("wrapped config errors should be fatal")
	}
	if IsFatal(transient) {
		t.Error("fetch errors should not be fatal")
	}
	if IsFatal(&ExtractError{URL: "u", Err: errors.New("bad encoding")}) {
		t.Error("extract errors should not be fatal")
	}
}
