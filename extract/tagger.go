package extract

import (
	"strings"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
)

// Content types assigned by ContentType.
const (
	TypeSurvey  = "survey"
	TypeDataset = "dataset"
	TypePDF     = "pdf"
	TypeBook    = "book"
	TypeReport  = "report"
	TypeArticle = "article"
)

// ContentType classifies a hit from its URL, title and snippet.
// The first matching rule wins.
func ContentType(url, title, snippet string) string {
	tokens := tokenize(title + " " + snippet + " " + url)
	switch {
	case hasAny(tokens, "survey", "questionnaire", "census"):
		return TypeSurvey
	case hasAny(tokens, "dataset", "data", "statistics", "csv", "database"):
		return TypeDataset
	case strings.HasSuffix(strings.ToLower(url), ".pdf") || hasAny(tokens, "pdf", "document"):
		return TypePDF
	case hasAny(tokens, "book", "handbook", "manual", "guide"):
		return TypeBook
	case hasAny(tokens, "report", "annual", "study", "studies", "analysis"):
		return TypeReport
	default:
		return TypeArticle
	}
}

type topicRule struct {
	tag      string
	keywords []string
}

// Topical tags and the keywords that trigger them, in output order.
var topicRules = []topicRule{
	{"soil", []string{"soil", "fertility", "nutrient", "organic matter"}},
	{"irrigation", []string{"irrigation", "water", "drip", "sprinkler"}},
	{"climate", []string{"climate", "weather", "monsoon", "drought"}},
	{"technology", []string{"technology", "precision", "digital", "smart"}},
	{"policy", []string{"policy", "government", "scheme", "subsidy"}},
	{"organic", []string{"organic", "sustainable", "natural farming"}},
	{"pest", []string{"pest", "disease", "ipm"}},
}

// Tagger derives metadata tags for an entry: the content type, topical
// tags, and the regions and crops of the knowledge base mentioned in it.
type Tagger struct {
	regions []string
	crops   []string
}

// NewTagger creates a tagger over kb. A nil kb only produces content type
// and topical tags.
func NewTagger(kb *knowledge.KnowledgeBase) *Tagger {
	t := &Tagger{}
	if kb != nil {
		t.regions = kb.Terms(knowledge.CategoryRegion)
		t.crops = kb.Terms("crop")
	}
	return t
}

// Tags returns the entry's tags, deduplicated, in a stable order.
func (t *Tagger) Tags(entry *core.Entry, snippet string) []string {
	tokens := tokenize(entry.Title + " " + snippet + " " + entry.Text)
	tags := []string{ContentType(entry.URL, entry.Title, snippet)}
	for _, rule := range topicRules {
		if hasAny(tokens, rule.keywords...) {
			tags = append(tags, rule.tag)
		}
	}
	for _, terms := range [][]string{t.regions, t.crops} {
		for _, term := range terms {
			if hasTerm(tokens, term) {
				tags = append(tags, strings.ToLower(term))
			}
		}
	}
	return dedupe(tags)
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := tags[:0]
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
