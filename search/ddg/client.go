// Package ddg implements search.Client over the DuckDuckGo HTML endpoint.
package ddg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/poiesic/curator/core"
	"github.com/poiesic/curator/search"
)

const (
	// DefaultBaseURL is the no-JavaScript DuckDuckGo results page.
	DefaultBaseURL = "https://html.duckduckgo.com/html/"

	// DefaultRegion biases results toward Indian English sources.
	DefaultRegion = "in-en"

	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) curator/1.0"
	maxBodyBytes     = 4 << 20
)

// Client scrapes DuckDuckGo result pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
	region     string
	userAgent  string
	logger     *slog.Logger
}

var _ search.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBaseURL points the client at a different results endpoint.
func WithBaseURL(u string) Option {
	return func(cl *Client) {
		cl.baseURL = u
	}
}

// WithRegion sets the kl region parameter. Empty disables region biasing.
func WithRegion(region string) Option {
	return func(cl *Client) {
		cl.region = region
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a DuckDuckGo client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    DefaultBaseURL,
		region:     DefaultRegion,
		userAgent:  defaultUserAgent,
		logger:     slog.Default().With("component", "ddg"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch implements search.Client.
func (c *Client) Fetch(ctx context.Context, q core.Query, limit int) ([]core.RawHit, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, core.NewPermanentFetchError(q.Text, search.ErrEmptyQuery)
	}

	params := url.Values{}
	params.Set("q", text)
	if c.region != "" {
		params.Set("kl", c.region)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, core.NewPermanentFetchError(text, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, search.Classify(text, err)
	}
	defer resp.Body.Close()

	// DuckDuckGo answers bot suspicion with 202 and a challenge page.
	if resp.StatusCode == http.StatusAccepted {
		return nil, core.NewTransientFetchError(text, fmt.Errorf("%w: challenge page", search.ErrRateLimited))
	}
	if err := search.StatusError(text, resp.StatusCode, resp.Status); err != nil {
		return nil, err
	}

	hits, err := parseResults(io.LimitReader(resp.Body, maxBodyBytes), limit)
	if err != nil {
		return nil, search.Classify(text, err)
	}
	c.logger.Debug("fetched results", "query", text, "hits", len(hits))
	return hits, nil
}

func parseResults(r io.Reader, limit int) ([]core.RawHit, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", search.ErrMalformedResponse, err)
	}

	var hits []core.RawHit
	doc.Find("div.result").Not(".result--ad").Each(func(_ int, s *goquery.Selection) {
		if limit > 0 && len(hits) >= limit {
			return
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		target := resolveLink(href)
		if target == "" {
			return
		}
		hits = append(hits, core.RawHit{
			URL:          target,
			Title:        collapse(link.Text()),
			Snippet:      collapse(s.Find(".result__snippet").Text()),
			SourceDomain: core.DomainOf(target),
		})
	})
	return hits, nil
}

// resolveLink unwraps DuckDuckGo redirect links (/l/?uddg=...) to the
// destination URL. It returns "" for links that are not http(s).
func resolveLink(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if dest := u.Query().Get("uddg"); dest != "" && strings.HasSuffix(u.Path, "/l/") {
		u, err = url.Parse(dest)
		if err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
