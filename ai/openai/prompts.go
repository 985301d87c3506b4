package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/curator/ai"
	"github.com/poiesic/curator/core"
)

const assessmentSchema = `{
  "type": "object",
  "properties": {
    "domain": {"type": "string"},
    "relevance_score": {"type": "number", "minimum": 0, "maximum": 1},
    "geographic_relevance": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["domain", "relevance_score", "geographic_relevance"],
  "additionalProperties": false
}`

const assessmentPromptTemplate = `You are an expert in Indian agriculture reviewing web content for a research corpus.
Rate how useful the content is for someone studying agriculture in India and return the rating as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble or
explanation. Start your response directly with the opening brace { and end with the closing brace }.

%s

Rules:
- domain must be exactly one of: %s.
- relevance_score is a number from 0.0 (unrelated) to 1.0 (directly about Indian agriculture with concrete facts).
- Content about agriculture outside India scores at most 0.6. Advertisements, shopping pages and navigation pages score below 0.2.
- geographic_relevance lists Indian states, regions or crops explicitly mentioned; use [] when none are.

Example:
Input: "Title: Direct seeded rice in Punjab\nText: PAU recommends direct seeding of paddy to save groundwater..."
Output:
{"domain":"crops","relevance_score":0.9,"geographic_relevance":["punjab","rice"]}`

// buildSystemPrompt creates the system prompt with the schema and domains embedded.
func buildSystemPrompt() string {
	return fmt.Sprintf(assessmentPromptTemplate, assessmentSchema, strings.Join(ai.Domains, ", "))
}

// buildUserPrompt renders the entry, limiting its text to maxContent runes.
func buildUserPrompt(entry *core.Entry, maxContent int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", entry.Title)
	fmt.Fprintf(&b, "URL: %s\n", entry.URL)
	if entry.Query.Text != "" {
		fmt.Fprintf(&b, "Search query: %s\n", entry.Query.Text)
	}
	fmt.Fprintf(&b, "Text: %s", truncate(entry.Text, maxContent))
	return b.String()
}

const queryPromptTemplate = `You are an expert in %s for Indian agriculture. Write %d highly specific web search queries that would find the most relevant and recent information.

Focus on:
- Indian agricultural context (states, regions, crops, policies)
- Research publications and government reports
- Data, statistics and field case studies
%s%s
Return exactly %d queries, one per line, without numbering, bullets or quotes. Do not write questions.`

// buildQueryPrompt renders the query drafting prompt. Only the last
// maxPrevious queries of the history are included.
func buildQueryPrompt(req ai.QueryRequest, maxPrevious int) string {
	specialization := req.Specialization
	if specialization == "" {
		specialization = "agriculture"
	}

	var focus string
	if len(req.Focus) > 0 {
		focus = fmt.Sprintf("- Topics: %s\n", strings.Join(req.Focus, ", "))
	}

	var previous string
	if history := req.Previous; len(history) > 0 {
		if len(history) > maxPrevious {
			history = history[len(history)-maxPrevious:]
		}
		previous = fmt.Sprintf("\nQueries already used: %s\nWrite different queries that do not repeat them.\n", strings.Join(history, "; "))
	}

	return fmt.Sprintf(queryPromptTemplate, specialization, req.Count, focus, previous, req.Count)
}
