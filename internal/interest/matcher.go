// Package interest decides which papers deserve detailed processing.
package interest

import (
	"strings"

	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

// MatchResult is a paper together with the keywords found in it.
type MatchResult struct {
	Paper    fetcher.Paper
	Keywords []string
}

// Matcher finds interest keywords in paper titles, abstracts and author lists.
// Matching is a case-insensitive substring test.
type Matcher struct {
	keywords []string
	lowered  []string
}

// NewMatcher ignores empty keywords and repeated ones.
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	seen := map[string]bool{}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		low := strings.ToLower(kw)
		if kw == "" || seen[low] {
			continue
		}
		seen[low] = true
		m.keywords = append(m.keywords, kw)
		m.lowered = append(m.lowered, low)
	}
	return m
}

// Keywords returns the effective keyword list.
func (m *Matcher) Keywords() []string {
	return m.keywords
}

// MatchOne returns the keywords found in p, in keyword order.
func (m *Matcher) MatchOne(p fetcher.Paper) []string {
	haystack := strings.ToLower(strings.Join([]string{
		p.Title,
		p.Abstract,
		strings.Join(p.Authors, ", "),
	}, "\n"))

	var found []string
	for i, kw := range m.lowered {
		if strings.Contains(haystack, kw) {
			found = append(found, m.keywords[i])
		}
	}
	return found
}

// Match returns the papers containing at least one keyword, in input order.
func (m *Matcher) Match(papers []fetcher.Paper) []MatchResult {
	var results []MatchResult
	for _, p := range papers {
		if kws := m.MatchOne(p); len(kws) > 0 {
			results = append(results, MatchResult{Paper: p, Keywords: kws})
		}
	}
	return results
}
