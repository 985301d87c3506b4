package extract

import (
	"context"
	"log/slog"
	"math"

	"github.com/poiesic/curator/core"
)

// Scorer rates how relevant an entry is to the curation domain.
// Scores outside [0,1] are clamped by the caller.
type Scorer interface {
	Score(ctx context.Context, entry *core.Entry) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, entry *core.Entry) (float64, error)

// Score implements Scorer.
func (f ScorerFunc) Score(ctx context.Context, entry *core.Entry) (float64, error) {
	return f(ctx, entry)
}

// DefaultDomainTerms are the agricultural terms the keyword scorer counts.
var DefaultDomainTerms = []string{
	"agriculture", "agricultural", "farming", "farmer", "crop", "cultivation",
	"harvest", "soil", "irrigation", "fertilizer", "yield", "pest",
}

// DefaultContextTerms place content in the Indian context.
var DefaultContextTerms = []string{"india", "indian", "bharatiya", "kisan"}

const (
	domainTermWeight  = 0.1
	contextTermWeight = 0.05
	perTermCap        = 0.3
	queryWeight       = 0.3
)

// KeywordScorer scores by counting domain and context terms, plus the share
// of the originating query's words found in the entry.
type KeywordScorer struct {
	domainTerms  []string
	contextTerms []string
}

var _ Scorer = (*KeywordScorer)(nil)

// NewKeywordScorer creates a keyword scorer. Nil term lists use the defaults.
func NewKeywordScorer(domainTerms, contextTerms []string) *KeywordScorer {
	if domainTerms == nil {
		domainTerms = DefaultDomainTerms
	}
	if contextTerms == nil {
		contextTerms = DefaultContextTerms
	}
	return &KeywordScorer{domainTerms: domainTerms, contextTerms: contextTerms}
}

// Score implements Scorer. It never fails.
func (s *KeywordScorer) Score(_ context.Context, entry *core.Entry) (float64, error) {
	tokens := tokenize(entry.Title + " " + entry.Text)
	if len(tokens) == 0 {
		return 0, nil
	}

	score := 0.0
	for _, term := range s.domainTerms {
		score += math.Min(float64(countTerm(tokens, term))*domainTermWeight, perTermCap)
	}
	for _, term := range s.contextTerms {
		score += math.Min(float64(countTerm(tokens, term))*contextTermWeight, perTermCap)
	}

	if words := contentWords(entry.Query.Text); len(words) > 0 {
		present := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			present[tok] = true
		}
		found := 0
		for _, w := range words {
			if present[w] {
				found++
			}
		}
		score += queryWeight * float64(found) / float64(len(words))
	}
	return math.Min(score, 1), nil
}

// Blend combines a primary scorer, typically a language model, with a
// fallback. The result is weight*primary + (1-weight)*fallback; when the
// primary fails the fallback score is used alone.
type Blend struct {
	primary  Scorer
	fallback Scorer
	weight   float64
	logger   *slog.Logger
}

var _ Scorer = (*Blend)(nil)

// NewBlend creates a blended scorer. weight is clamped to [0,1].
func NewBlend(primary, fallback Scorer, weight float64, logger *slog.Logger) *Blend {
	if logger == nil {
		logger = slog.Default().With("component", "scorer")
	}
	return &Blend{
		primary:  primary,
		fallback: fallback,
		weight:   core.ClampScore(weight),
		logger:   logger,
	}
}

// Score implements Scorer.
func (b *Blend) Score(ctx context.Context, entry *core.Entry) (float64, error) {
	base, err := b.fallback.Score(ctx, entry)
	if err != nil {
		return 0, err
	}
	primary, err := b.primary.Score(ctx, entry)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		b.logger.Warn("primary scorer failed, using fallback", "url", entry.URL, "err", err)
		return core.ClampScore(base), nil
	}
	return b.weight*core.ClampScore(primary) + (1-b.weight)*core.ClampScore(base), nil
}
