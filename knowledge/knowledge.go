package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/curator/core"
)

// Reserved category names. They are enumeration axes rather than topics.
const (
	CategoryRegion   = "region"
	CategoryModifier = "modifier"
)

// DefaultSubcategory names the implicit subcategory of a category declared as a plain list.
const DefaultSubcategory = "all"

//go:embed default.yaml
var defaultTaxonomy []byte

type subcategory struct {
	name  string
	terms []string
}

type category struct {
	name string
	subs []subcategory
	all  []string
}

// KnowledgeBase is a taxonomy of domain terms: category -> subcategory -> ordered terms.
// It is immutable after load and safe for concurrent reads.
type KnowledgeBase struct {
	categories map[string]*category
	names      []string
}

// Load reads a YAML taxonomy from r. Each top-level key is a category whose
// value is either a list of terms or a mapping of subcategories to term lists.
// Malformed input yields a *core.LoadError.
func Load(r io.Reader) (*KnowledgeBase, error) {
	return load("", r)
}

// LoadFile reads a YAML taxonomy from path.
func LoadFile(path string) (*KnowledgeBase, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.LoadError{Source: path, Err: err}
	}
	defer f.Close()
	return load(path, f)
}

// Default returns the embedded agricultural taxonomy.
func Default() *KnowledgeBase {
	kb, err := load("default", bytes.NewReader(defaultTaxonomy))
	if err != nil {
		panic(err)
	}
	return kb
}

// FromMap builds a KnowledgeBase from category -> terms.
func FromMap(m map[string][]string) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{categories: make(map[string]*category, len(m))}
	for name, terms := range m {
		cat := &category{name: name}
		if err := cat.add(DefaultSubcategory, terms); err != nil {
			return nil, &core.LoadError{Err: err}
		}
		kb.categories[name] = cat
		kb.names = append(kb.names, name)
	}
	if err := kb.finish(); err != nil {
		return nil, &core.LoadError{Err: err}
	}
	return kb, nil
}

func load(source string, r io.Reader) (*KnowledgeBase, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &core.LoadError{Source: source, Err: ErrNoCategories}
		}
		return nil, &core.LoadError{Source: source, Err: err}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &core.LoadError{Source: source, Err: ErrNoCategories}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: top level must be a mapping", ErrMalformed)}
	}

	kb := &KnowledgeBase{categories: make(map[string]*category)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := strings.TrimSpace(root.Content[i].Value)
		value := root.Content[i+1]
		if name == "" {
			return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: line %d", ErrEmptyName, root.Content[i].Line)}
		}
		if _, dup := kb.categories[name]; dup {
			return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: %s", ErrDuplicateCategory, name)}
		}

		cat := &category{name: name}
		switch value.Kind {
		case yaml.SequenceNode:
			terms, err := scalars(value)
			if err != nil {
				return nil, &core.LoadError{Source: source, Err: fmt.Errorf("category %s: %w", name, err)}
			}
			if err := cat.add(DefaultSubcategory, terms); err != nil {
				return nil, &core.LoadError{Source: source, Err: err}
			}
		case yaml.MappingNode:
			for j := 0; j+1 < len(value.Content); j += 2 {
				sub := strings.TrimSpace(value.Content[j].Value)
				if sub == "" {
					return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: category %s line %d", ErrEmptyName, name, value.Content[j].Line)}
				}
				if value.Content[j+1].Kind != yaml.SequenceNode {
					return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: %s.%s must be a list", ErrMalformed, name, sub)}
				}
				terms, err := scalars(value.Content[j+1])
				if err != nil {
					return nil, &core.LoadError{Source: source, Err: fmt.Errorf("category %s.%s: %w", name, sub, err)}
				}
				if err := cat.add(sub, terms); err != nil {
					return nil, &core.LoadError{Source: source, Err: err}
				}
			}
			if len(cat.subs) == 0 {
				return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: %s", ErrEmptyCategory, name)}
			}
		default:
			return nil, &core.LoadError{Source: source, Err: fmt.Errorf("%w: category %s must be a list or mapping", ErrMalformed, name)}
		}

		kb.categories[name] = cat
		kb.names = append(kb.names, name)
	}

	if err := kb.finish(); err != nil {
		return nil, &core.LoadError{Source: source, Err: err}
	}
	return kb, nil
}

func scalars(seq *yaml.Node) ([]string, error) {
	out := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: line %d: terms must be scalars", ErrMalformed, item.Line)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func (c *category) add(sub string, terms []string) error {
	seen := make(map[string]struct{}, len(c.all))
	for _, t := range c.all {
		seen[strings.ToLower(t)] = struct{}{}
	}
	clean := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		clean = append(clean, t)
	}
	if len(clean) == 0 {
		if sub == DefaultSubcategory {
			return fmt.Errorf("%w: %s", ErrEmptyCategory, c.name)
		}
		return fmt.Errorf("%w: %s.%s", ErrEmptyCategory, c.name, sub)
	}
	c.subs = append(c.subs, subcategory{name: sub, terms: clean})
	c.all = append(c.all, clean...)
	return nil
}

func (kb *KnowledgeBase) finish() error {
	if len(kb.categories) == 0 {
		return ErrNoCategories
	}
	sort.Strings(kb.names)
	return nil
}

// Categories returns every category name in lexical order.
func (kb *KnowledgeBase) Categories() []string {
	out := make([]string, len(kb.names))
	copy(out, kb.names)
	return out
}

// Topics returns the non-reserved categories in lexical order.
func (kb *KnowledgeBase) Topics() []string {
	out := make([]string, 0, len(kb.names))
	for _, name := range kb.names {
		if !IsReserved(name) {
			out = append(out, name)
		}
	}
	return out
}

// IsReserved reports whether name is an enumeration axis rather than a topic.
func IsReserved(name string) bool {
	return name == CategoryRegion || name == CategoryModifier
}

// Has reports whether the category exists.
func (kb *KnowledgeBase) Has(name string) bool {
	_, ok := kb.categories[name]
	return ok
}

// Require returns a *core.LoadError naming the first missing category.
func (kb *KnowledgeBase) Require(names ...string) error {
	for _, name := range names {
		if !kb.Has(name) {
			return &core.LoadError{Err: fmt.Errorf("%w: %s", ErrMissingCategory, name)}
		}
	}
	return nil
}

// Terms returns every term of a category in declaration order.
// Unknown categories return nil.
func (kb *KnowledgeBase) Terms(name string) []string {
	cat, ok := kb.categories[name]
	if !ok {
		return nil
	}
	out := make([]string, len(cat.all))
	copy(out, cat.all)
	return out
}

// Subcategories returns the subcategory names of a category in declaration order.
func (kb *KnowledgeBase) Subcategories(name string) []string {
	cat, ok := kb.categories[name]
	if !ok {
		return nil
	}
	out := make([]string, len(cat.subs))
	for i, s := range cat.subs {
		out[i] = s.name
	}
	return out
}

// SubcategoryTerms returns the terms of one subcategory.
func (kb *KnowledgeBase) SubcategoryTerms(name, sub string) []string {
	cat, ok := kb.categories[name]
	if !ok {
		return nil
	}
	for _, s := range cat.subs {
		if s.name == sub {
			out := make([]string, len(s.terms))
			copy(out, s.terms)
			return out
		}
	}
	return nil
}

// Sample returns up to n distinct terms of a category chosen with rng.
// Fewer terms are returned when the category is smaller than n.
func (kb *KnowledgeBase) Sample(name string, n int, rng *rand.Rand) []string {
	cat, ok := kb.categories[name]
	if !ok || n <= 0 {
		return nil
	}
	if n > len(cat.all) {
		n = len(cat.all)
	}
	// Partial Fisher-Yates over an index permutation
	idx := make([]int, len(cat.all))
	for i := range idx {
		idx[i] = i
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = cat.all[idx[i]]
	}
	return out
}

// Lookup returns the category holding term, matched case-insensitively.
func (kb *KnowledgeBase) Lookup(term string) (string, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, name := range kb.names {
		for _, t := range kb.categories[name].all {
			if strings.ToLower(t) == term {
				return name, true
			}
		}
	}
	return "", false
}
