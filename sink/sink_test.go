package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/curator/core"
)

func entry(i int) *core.Entry {
	return &core.Entry{
		Title:               fmt.Sprintf("Entry %d", i),
		Text:                "Soil health card scheme adoption in Punjab",
		URL:                 fmt.Sprintf("https://icar.org.in/e/%d", i),
		SourceDomain:        "icar.org.in",
		RelevanceScore:      0.7,
		Tags:                []string{"article", "soil"},
		ExtractionTimestamp: time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		ContentLength:       42,
	}
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<20)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec), "line %q", scanner.Text())
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJSONLRecordFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "entries.jsonl")
	s, err := NewJSONL(path)
	require.NoError(t, err)

	require.NoError(t, s.Append(context.Background(), entry(1)))
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	rec := lines[0]
	assert.Len(t, rec, 8)
	for _, field := range []string{"title", "text", "url", "source_domain", "relevance_score", "tags", "extraction_timestamp", "content_length"} {
		assert.Contains(t, rec, field)
	}
	assert.Equal(t, "https://icar.org.in/e/1", rec["url"])
	assert.Equal(t, 0.7, rec["relevance_score"])
}

func TestJSONLConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.jsonl")
	s, err := NewJSONL(path, WithSync(false))
	require.NoError(t, err)

	const writers, each = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				assert.NoError(t, s.Append(context.Background(), entry(w*each+i)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	assert.Len(t, lines, writers*each)
	urls := make(map[any]bool)
	for _, rec := range lines {
		urls[rec["url"]] = true
	}
	assert.Len(t, urls, writers*each)
}

func TestJSONLAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.jsonl")
	for i := 0; i < 2; i++ {
		s, err := NewJSONL(path)
		require.NoError(t, err)
		require.NoError(t, s.Append(context.Background(), entry(i)))
		assert.Equal(t, int64(1), s.Written())
		require.NoError(t, s.Close())
	}
	assert.Len(t, readLines(t, path), 2)
}

func TestJSONLTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.jsonl")
	s, err := NewJSONL(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), entry(1)))
	require.NoError(t, s.Append(context.Background(), entry(2)))
	require.NoError(t, s.Close())

	s, err = NewJSONL(path, WithTruncate(true))
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), entry(3)))
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "https://icar.org.in/e/3", lines[0]["url"])
}

func TestJSONLAfterClose(t *testing.T) {
	s, err := NewJSONL(filepath.Join(t.TempDir(), "entries.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.NoError(t, s.Flush())

	err = s.Append(context.Background(), entry(1))
	var we *core.WriteError
	require.True(t, errors.As(err, &we))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestJSONLOpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewJSONL(filepath.Join(blocker, "entries.jsonl"))
	var we *core.WriteError
	assert.True(t, errors.As(err, &we))
}

func TestNilEntry(t *testing.T) {
	assert.ErrorIs(t, NewMemory().Append(context.Background(), nil), ErrNilEntry)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	e := entry(1)
	require.NoError(t, m.Append(context.Background(), e))
	e.Tags[0] = "changed"

	got := m.Entries()
	require.Len(t, got, 1)
	assert.Equal(t, "article", got[0].Tags[0])

	require.NoError(t, m.Flush())
	assert.Equal(t, 1, m.Flushes())

	m.FailAfter = 1
	var we *core.WriteError
	assert.True(t, errors.As(m.Append(context.Background(), entry(2)), &we))
}
