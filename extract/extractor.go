package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/knowledge"
)

const (
	// DefaultMaxTextLength caps the stored text of an entry, in runes.
	DefaultMaxTextLength = 20000

	// minFingerprintLength is the shortest normalized content that gets a
	// fingerprint. Shorter content deduplicates by URL only.
	minFingerprintLength = 80
)

// Extractor turns raw hits into scored, tagged entries.
type Extractor struct {
	scorer  Scorer
	tagger  *Tagger
	pages   PageFetcher
	maxText int
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithScorer replaces the keyword scorer.
func WithScorer(s Scorer) Option {
	return func(x *Extractor) {
		if s != nil {
			x.scorer = s
		}
	}
}

// WithPageFetcher enables full-page retrieval for hits without a body.
func WithPageFetcher(f PageFetcher) Option {
	return func(x *Extractor) {
		x.pages = f
	}
}

// WithMaxTextLength caps entry text. Non-positive values disable the cap.
func WithMaxTextLength(n int) Option {
	return func(x *Extractor) {
		x.maxText = n
	}
}

// WithClock sets the time source for extraction timestamps.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) {
		x.now = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		x.logger = logger
	}
}

// New creates an Extractor tagging against kb.
func New(kb *knowledge.KnowledgeBase, opts ...Option) *Extractor {
	x := &Extractor{
		scorer:  NewKeywordScorer(nil, nil),
		tagger:  NewTagger(kb),
		maxText: DefaultMaxTextLength,
		now:     time.Now,
		logger:  slog.Default().With("component", "extract"),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract builds an Entry from hit. Every failure is an *core.ExtractError.
// The relevance threshold is not applied here.
func (x *Extractor) Extract(ctx context.Context, hit core.RawHit, q core.Query) (*core.Entry, error) {
	rawURL := strings.TrimSpace(hit.URL)
	normalized, err := core.NormalizeURL(rawURL)
	if err != nil {
		return nil, &core.ExtractError{URL: rawURL, Err: err}
	}
	title := collapse(hit.Title)
	if title == "" {
		return nil, &core.ExtractError{URL: rawURL, Err: ErrMissingTitle}
	}
	snippet := collapse(hit.Snippet)

	text := collapse(hit.Body)
	if text == "" && x.pages != nil {
		page, err := x.pages.FetchText(ctx, rawURL)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, &core.ExtractError{URL: rawURL, Err: ctx.Err()}
			}
			x.logger.Debug("page fetch failed, using snippet", "url", rawURL, "err", err)
		case utf8.RuneCountInString(page) > utf8.RuneCountInString(snippet):
			text = page
		}
	}
	if text == "" {
		text = snippet
	}
	text = truncateRunes(text, x.maxText)

	domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(hit.SourceDomain)), "www.")
	if domain == "" {
		domain = core.DomainOf(normalized)
	}

	entry := &core.Entry{
		Title:               title,
		Text:                text,
		URL:                 rawURL,
		SourceDomain:        domain,
		ExtractionTimestamp: x.now().UTC(),
		ContentLength:       utf8.RuneCountInString(text),
		Query:               q,
		Fingerprint:         fingerprint(text),
	}

	score, err := x.scorer.Score(ctx, entry)
	if err != nil {
		return nil, &core.ExtractError{URL: rawURL, Err: err}
	}
	entry.RelevanceScore = core.ClampScore(score)
	entry.Tags = x.tagger.Tags(entry, snippet)
	return entry, nil
}

func fingerprint(text string) core.Fingerprint {
	if len(core.NormalizeText(text)) < minFingerprintLength {
		return ""
	}
	return core.FingerprintText(text)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
