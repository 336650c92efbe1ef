// Package search provides a small, deterministic, concurrency-safe in-memory
// similarity index over short documents (content item titles and bodies).
// It is used to spot near-duplicate topics before a new post is drafted.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options for stop words, minimum length and document caps
//   - Unicode-aware tokenization
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic scoring and ordering (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Doc is one indexable document.
type Doc struct {
	ID   string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID      string
	Snippet string
	Score   float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minRunes  int
	stopwords map[string]struct{}
	maxDocs   int
}

func defaultConfig() config {
	return config{
		minRunes:  1,
		stopwords: nil,
		maxDocs:   0,
	}
}

// WithMinRunes skips documents shorter than n runes after normalization.
func WithMinRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

// WithStopwords drops the given words from documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps how many documents are indexed.
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// DefaultStopwords is a short English list used for post similarity.
var DefaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "how",
	"in", "is", "it", "of", "on", "or", "our", "the", "this", "to", "we",
	"what", "with", "you", "your",
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	text   string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs. Empty or too-short documents and
// documents without any token are skipped.
func NewIndex(docs []Doc, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		t := strings.TrimSpace(normalizeWhitespace(d.Text))
		if t == "" {
			continue
		}
		if cfg.minRunes > 0 && utf8.RuneCountInString(t) < cfg.minRunes {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, text: t, tokens: toks})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

// Len reports the number of indexed documents.
func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents by Jaccard similarity.
// Non-positive k defaults to 5.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 5
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}

	type scored struct {
		doc   *doc
		score float64
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for n := range i.docs {
		d := &i.docs[n]
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(d.tokens) - over)
		buf = append(buf, scored{doc: d, score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		return buf[a].doc.id < buf[b].doc.id
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{ID: buf[n].doc.id, Snippet: buf[n].doc.text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
