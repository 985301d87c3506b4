package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageFetcher retrieves the readable text of a web page.
type PageFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

const defaultMaxPageBytes = 2 << 20

// HTTPPageFetcher downloads HTML pages and strips them to visible text.
type HTTPPageFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

var _ PageFetcher = (*HTTPPageFetcher)(nil)

// NewHTTPPageFetcher creates a page fetcher. A nil client gets a 15 second timeout.
func NewHTTPPageFetcher(client *http.Client) *HTTPPageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPPageFetcher{
		client:    client,
		userAgent: "Mozilla/5.0 (compatible; curator/1.0)",
		maxBytes:  defaultMaxPageBytes,
	}
}

// FetchText implements PageFetcher.
func (f *HTTPPageFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", ErrPageStatus, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
		}
	}
	return PageText(io.LimitReader(resp.Body, f.maxBytes))
}

// PageText parses HTML and returns its visible text with boilerplate
// elements removed and whitespace collapsed.
func PageText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, footer, header, aside, form, iframe").Remove()

	if article := doc.Find("article").First(); article.Length() > 0 {
		if text := visibleText(article); len(text) >= 200 {
			return text, nil
		}
	}
	if body := doc.Find("body"); body.Length() > 0 {
		return visibleText(body), nil
	}
	return visibleText(doc.Selection), nil
}

// visibleText joins every text node under s with single spaces, so adjacent
// block elements do not run together.
func visibleText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*goquery.Selection)
	walk = func(sel *goquery.Selection) {
		sel.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				b.WriteString(c.Text())
				b.WriteByte(' ')
				return
			}
			walk(c)
		})
	}
	walk(s)
	return strings.Join(strings.Fields(b.String()), " ")
}
