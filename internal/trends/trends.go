// Package trends computes the statistics behind weekly and monthly reports.
package trends

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
)

const (
	maxCategories = 10
	maxKeywords   = 20
	maxHighlights = 20
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "with": true, "by": true, "from": true, "via": true,
	"using": true, "based": true, "model": true, "models": true, "learning": true, "approach": true,
	"method": true, "methods": true, "system": true, "study": true, "analysis": true, "paper": true,
	"research": true, "new": true, "novel": true, "efficient": true, "robust": true, "towards": true,
	"toward": true, "through": true, "into": true, "when": true, "what": true, "does": true, "their": true,
	"your": true, "large": true, "language": true,
}

// Summary is the outcome of Analyze.
type Summary struct {
	TotalPapers   int
	TopCategories []digest.Stat
	TopKeywords   []digest.Stat
	// Highlights are interest-matched entries, most keywords first.
	Highlights []digest.Entry
}

// Analyze counts categories and title keywords over entries. A paper archived
// on several days is counted once, using its first occurrence.
func Analyze(entries []digest.Entry) Summary {
	categories := map[string]int{}
	keywords := map[string]int{}
	var highlights []digest.Entry
	seen := map[string]bool{}

	for _, e := range entries {
		if seen[e.Paper.ID] {
			continue
		}
		seen[e.Paper.ID] = true

		for _, c := range e.Paper.Categories {
			categories[c]++
		}
		for _, w := range TitleWords(e.Paper.Title) {
			keywords[w]++
		}
		if len(e.Keywords) > 0 {
			highlights = append(highlights, e)
		}
	}

	slices.SortStableFunc(highlights, func(a, b digest.Entry) int {
		return cmp.Compare(len(b.Keywords), len(a.Keywords))
	})
	if len(highlights) > maxHighlights {
		highlights = highlights[:maxHighlights]
	}

	return Summary{
		TotalPapers:   len(seen),
		TopCategories: top(categories, maxCategories),
		TopKeywords:   top(keywords, maxKeywords),
		Highlights:    highlights,
	}
}

// TitleWords lowercases title, strips non-alphanumerics from each word and
// drops stop words and words of three letters or fewer. Each word is
// returned once.
func TitleWords(title string) []string {
	var words []string
	seen := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, w)
		if len([]rune(w)) <= 3 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// top returns the n largest counts, ties broken by name.
func top(counts map[string]int, n int) []digest.Stat {
	stats := make([]digest.Stat, 0, len(counts))
	for name, c := range counts {
		stats = append(stats, digest.Stat{Name: name, Count: c})
	}
	slices.SortFunc(stats, func(a, b digest.Stat) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if len(stats) > n {
		stats = stats[:n]
	}
	return stats
}
