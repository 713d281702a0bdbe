package interest

import "github.com/ryosukesatoh/daily-arxiv/internal/fetcher"

// Reason records why a paper got its processing path.
type Reason string

const (
	ReasonTopRanked Reason = "top_ranked"
	ReasonInterest  Reason = "interest_match"
	ReasonStandard  Reason = "standard"
)

// Selection is a ranked paper with its processing decision.
type Selection struct {
	Paper    fetcher.Paper
	Rank     int
	Detailed bool
	Reason   Reason
	Keywords []string
}

// Prioritize marks the first topN ranked papers and every interest match as
// detailed. ranked must be in ascending rank order; the result keeps that
// order and numbers it from 1. Papers outside both sets stay in the result
// with the standard path.
func Prioritize(ranked []fetcher.Paper, matches []MatchResult, topN int) []Selection {
	matched := make(map[string][]string, len(matches))
	for _, m := range matches {
		matched[m.Paper.ID] = m.Keywords
	}

	selections := make([]Selection, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))
	for _, p := range ranked {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		s := Selection{
			Paper:    p,
			Rank:     len(selections) + 1,
			Reason:   ReasonStandard,
			Keywords: matched[p.ID],
		}
		switch {
		case s.Rank <= topN:
			s.Detailed = true
			s.Reason = ReasonTopRanked
		case len(s.Keywords) > 0:
			s.Detailed = true
			s.Reason = ReasonInterest
		}
		selections = append(selections, s)
	}
	return selections
}

// CountDetailed returns how many selections take the detailed path.
func CountDetailed(selections []Selection) int {
	n := 0
	for _, s := range selections {
		if s.Detailed {
			n++
		}
	}
	return n
}
