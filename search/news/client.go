// Package news implements search.Client over Google News RSS search.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/search"
)

// DefaultBaseURL is the Google News RSS search endpoint.
const DefaultBaseURL = "https://news.google.com/rss/search"

// Edition selects the Google News locale.
type Edition struct {
	HL   string // interface language, e.g. "en-IN"
	GL   string // country, e.g. "IN"
	CEID string // edition id, e.g. "IN:en"
}

// India is the default English edition for India.
var India = Edition{HL: "en-IN", GL: "IN", CEID: "IN:en"}

// Client queries Google News RSS.
type Client struct {
	parser  *gofeed.Parser
	baseURL string
	edition Edition
	logger  *slog.Logger
}

var _ search.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used by the feed parser.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.parser.Client = c
	}
}

// WithBaseURL points the client at a different RSS search endpoint.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

// WithEdition sets the news edition.
func WithEdition(e Edition) Option {
	return func(cl *Client) {
		cl.edition = e
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a Google News client.
func New(opts ...Option) *Client {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: 20 * time.Second}
	parser.UserAgent = "curator/1.0"
	c := &Client{
		parser:  parser,
		baseURL: DefaultBaseURL,
		edition: India,
		logger:  slog.Default().With("component", "news"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) feedURL(text string) string {
	params := url.Values{}
	params.Set("q", text)
	if c.edition.HL != "" {
		params.Set("hl", c.edition.HL)
		params.Set("gl", c.edition.GL)
		params.Set("ceid", c.edition.CEID)
	}
	return c.baseURL + "?" + params.Encode()
}

// Fetch implements search.Client.
func (c *Client) Fetch(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, core.NewPermanentFetchError(q.Text, search.ErrEmptyQuery)
	}

	feed, err := c.parser.ParseURLWithContext(c.feedURL(text), ctx)
	if err != nil {
		var he gofeed.HTTPError
		if errors.As(err, &he) {
			return nil, search.StatusError(text, he.StatusCode, he.Status)
		}
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, core.NewPermanentFetchError(text, fmt.Errorf("%w: %w", search.ErrMalformedResponse, err))
		}
		return nil, search.Classify(text, err)
	}

	hits := make([]core.RawHit, 0, len(feed.Items))
	for _, item := range feed.Items {
		if limit > 0 && len(hits) >= limit {
			break
		}
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		title, _ := splitPublisher(item.Title)
		hits = append(hits, core.RawHit{
			URL:          link,
			Title:        title,
			Snippet:      plainText(item.Description),
			Body:         plainText(item.Content),
			SourceDomain: core.DomainOf(link),
		})
	}
	c.logger.Debug("fetched news", "query", text, "hits", len(hits))
	return hits, nil
}

// splitPublisher separates Google News "Headline - Publisher" titles.
func splitPublisher(title string) (string, string) {
	title = strings.TrimSpace(title)
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

// plainText strips markup from an RSS description.
func plainText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
