package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Strategy selects how an agent generates its queries.
type Strategy int

const (
	// StrategyStatic draws from a precomputed, deduplicated list of combinations.
	StrategyStatic Strategy = iota + 1
	// StrategyAdaptive fills pattern templates, biased by learned success.
	StrategyAdaptive
	// StrategyLLM asks a language model for queries and falls back to the
	// adaptive templates when the model is unavailable.
	StrategyLLM
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyStatic:
		return "static"
	case StrategyAdaptive:
		return "adaptive"
	case StrategyLLM:
		return "llm"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s >= StrategyStatic && s <= StrategyLLM
}

// ParseStrategy converts a configuration name into a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "static", "enumerated":
		return StrategyStatic, nil
	case "adaptive", "generative":
		return StrategyAdaptive, nil
	case "llm", "model":
		return StrategyLLM, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// AgentState is a step of the agent state machine.
type AgentState int32

const (
	AgentIdle AgentState = iota
	AgentQuerying
	AgentFetching
	AgentScoring
	AgentAdmitting
	AgentEmitting
	// AgentExhausted is reached when the generator has no more queries or the budget is spent.
	AgentExhausted
	// AgentStopped is reached when the run was canceled before exhaustion.
	AgentStopped
	// AgentFailed is reached when an escalated error (write failure) ended the agent.
	AgentFailed
)

var agentStateNames = [...]string{
	AgentIdle:      "idle",
	AgentQuerying:  "querying",
	AgentFetching:  "fetching",
	AgentScoring:   "scoring",
	AgentAdmitting: "admitting",
	AgentEmitting:  "emitting",
	AgentExhausted: "exhausted",
	AgentStopped:   "stopped",
	AgentFailed:    "failed",
}

func (s AgentState) String() string {
	if s >= 0 && int(s) < len(agentStateNames) {
		return agentStateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Terminal reports whether no further transitions will happen.
func (s AgentState) Terminal() bool {
	return s == AgentExhausted || s == AgentStopped || s == AgentFailed
}

// Query is a single search request produced by a query generator.
// It is consumed once by a search client.
type Query struct {
	Text     string
	AgentID  string
	Strategy Strategy
	Pattern  string // Template or enumeration key the query was generated from
	Category string // Knowledge base category the query targets
	Seq      int    // 1-based position in the agent's query sequence
	IssuedAt time.Time
}

// RawHit is an unprocessed search result.
type RawHit struct {
	URL          string
	Title        string
	Snippet      string
	Body         string // Full body text when the search backend provides it
	SourceDomain string
}

// Entry is one accepted, scored unit of collected content.
// The JSON form is the boundary record written to the output stream.
type Entry struct {
	Title               string    `json:"title"`
	Text                string    `json:"text"`
	URL                 string    `json:"url"`
	SourceDomain        string    `json:"source_domain"`
	RelevanceScore      float64   `json:"relevance_score"`
	Tags                []string  `json:"tags"`
	ExtractionTimestamp time.Time `json:"extraction_timestamp"`
	ContentLength       int       `json:"content_length"`

	// Provenance, used for learning feedback only.
	Query       Query       `json:"-"`
	Fingerprint Fingerprint `json:"-"`
}

// Shard restricts a static agent to every Count-th enumerated combination,
// starting at Index.
type Shard struct {
	Index int
	Count int
}

// AgentSpec describes one agent. It is immutable for the agent's lifetime.
type AgentSpec struct {
	ID             string
	Specialization string
	Focus          []string // Knowledge base categories the agent concentrates on
	MaxSearches    int
	Strategy       Strategy
	Exploration    float64
	Shard          Shard
	Seed           uint64
}

// AgentSummary describes what a single agent accomplished during a run.
type AgentSummary struct {
	AgentID        string     `json:"agent_id"`
	Specialization string     `json:"specialization"`
	FinalState     AgentState `json:"final_state"`
	Searches       int        `json:"searches"`
	Entries        int        `json:"entries"`
	FetchFailures  int        `json:"fetch_failures"`
	TopDomains     []string   `json:"top_domains,omitempty"`
}

// RunStats is a snapshot of run-wide counters.
type RunStats struct {
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	EntriesCollected int64          `json:"entries_collected"`
	UniqueURLs       int64          `json:"unique_urls"`
	UniqueDomains    int64          `json:"unique_domains"`
	SearchesIssued   int64          `json:"searches_issued"`
	Retries          int64          `json:"retries"`
	FetchFailures    int64          `json:"fetch_failures"`
	ExtractFailures  int64          `json:"extract_failures"`
	Duplicates       int64          `json:"duplicates"`
	BelowThreshold   int64          `json:"below_threshold"`
	AgentsExhausted  int64          `json:"agents_exhausted"`
	Elapsed          time.Duration  `json:"elapsed"`
	StopReason       string         `json:"stop_reason,omitempty"` // exhausted, canceled, max_entries, max_duration or aborted
	Aborted          bool           `json:"aborted"`
	AbortReason      string         `json:"abort_reason,omitempty"`
	Agents           []AgentSummary `json:"agents,omitempty"`
}
