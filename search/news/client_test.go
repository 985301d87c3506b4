package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/curator/core"
)

const feed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>"rice" - Google News</title>
<item>
  <title>Punjab farmers adopt direct seeded rice - The Tribune</title>
  <link>https://www.tribuneindia.com/news/punjab/dsr</link>
  <description>&lt;a href="https://www.tribuneindia.com/news/punjab/dsr"&gt;Punjab farmers adopt direct seeded rice&lt;/a&gt;&amp;nbsp;&amp;nbsp;&lt;font color="#6f6f6f"&gt;The Tribune&lt;/font&gt;</description>
</item>
<item>
  <title>No link here</title>
</item>
<item>
  <title>Kharif sowing update</title>
  <link>https://agricoop.gov.in/kharif</link>
</item>
</channel></rss>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL+"/rss/search"), WithHTTPClient(srv.Client()))
}

func TestFetch(t *testing.T) {
	var params map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params = map[string]string{"q": q.Get("q"), "hl": q.Get("hl"), "gl": q.Get("gl"), "ceid": q.Get("ceid")}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	})

	hits, err := client.Fetch(context.Background(), core.Query{Text: "direct seeded rice"}, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q": "direct seeded rice", "hl": "en-IN", "gl": "IN", "ceid": "IN:en"}, params)

	require.Len(t, hits, 2)
	assert.Equal(t, "Punjab farmers adopt direct seeded rice", hits[0].Title)
	assert.Equal(t, "https://www.tribuneindia.com/news/punjab/dsr", hits[0].URL)
	assert.Equal(t, "tribuneindia.com", hits[0].SourceDomain)
	assert.Contains(t, hits[0].Snippet, "Punjab farmers adopt direct seeded rice")
	assert.NotContains(t, hits[0].Snippet, "<a")
	assert.Equal(t, "Kharif sowing update", hits[1].Title)
	assert.Empty(t, hits[1].Snippet)
}

func TestFetchLimit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	})
	hits, err := client.Fetch(context.Background(), core.Query{Text: "rice"}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestFetchErrors(t *testing.T) {
	t.Run("server error is transient", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		_, err := client.Fetch(context.Background(), core.Query{Text: "rice"}, 5)
		require.Error(t, err)
		assert.True(t, core.IsTransient(err))
	})

	t.Run("not a feed is permanent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("hello"))
		})
		_, err := client.Fetch(context.Background(), core.Query{Text: "rice"}, 5)
		require.Error(t, err)
		var fe *core.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, core.FetchPermanent, fe.Kind)
	})
}

func TestSplitPublisher(t *testing.T) {
	title, pub := splitPublisher("Monsoon arrives early - A - The Hindu")
	assert.Equal(t, "Monsoon arrives early - A", title)
	assert.Equal(t, "The Hindu", pub)

	title, pub = splitPublisher("No publisher")
	assert.Equal(t, "No publisher", title)
	assert.Empty(t, pub)
}
