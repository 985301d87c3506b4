package dedup

import (
	"sync"

	"github.com/poiesic/curator/core"
)

// Index is the shared set of admitted URLs and content fingerprints.
// Implementations must be safe for concurrent use.
type Index interface {
	// TryAdmit atomically checks url and fp and records both when neither is
	// known. It returns true iff this call performed the insertion. URLs are
	// normalized first; an empty fingerprint only checks the URL.
	TryAdmit(url string, fp core.Fingerprint) (bool, error)

	// Len returns the number of known URLs, including preloaded ones.
	Len() int

	// Domains returns the number of distinct source domains admitted by this index.
	Domains() int
}

// MemoryIndex is an in-process Index guarded by a mutex.
type MemoryIndex struct {
	mu      sync.Mutex
	urls    map[string]struct{}
	fps     map[core.Fingerprint]struct{}
	domains map[string]struct{}
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		urls:    make(map[string]struct{}),
		fps:     make(map[core.Fingerprint]struct{}),
		domains: make(map[string]struct{}),
	}
}

// TryAdmit implements Index.
func (m *MemoryIndex) TryAdmit(url string, fp core.Fingerprint) (bool, error) {
	normalized, err := core.NormalizeURL(url)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.absentLocked(normalized, fp) {
		return false, nil
	}
	m.insertLocked(normalized, fp, true)
	return true, nil
}

func (m *MemoryIndex) absentLocked(url string, fp core.Fingerprint) bool {
	if _, ok := m.urls[url]; ok {
		return false
	}
	if fp != "" {
		if _, ok := m.fps[fp]; ok {
			return false
		}
	}
	return true
}

func (m *MemoryIndex) insertLocked(url string, fp core.Fingerprint, admitted bool) {
	m.urls[url] = struct{}{}
	if fp != "" {
		m.fps[fp] = struct{}{}
	}
	if admitted {
		if d := core.DomainOf(url); d != "" {
			m.domains[d] = struct{}{}
		}
	}
}

// Len implements Index.
func (m *MemoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls)
}

// Domains implements Index.
func (m *MemoryIndex) Domains() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.domains)
}
