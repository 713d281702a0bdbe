package scraper

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

var rankExpr = regexp.MustCompile(`#\s*(\d+)`)

// ParsePapersCool extracts the paper panels of a papers.cool listing page.
// Panels without an id or a title are skipped. A panel without a rank badge
// takes its position on the page.
func ParsePapersCool(r io.Reader) ([]Ranking, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse document: %w", err)
	}

	var rankings []Ranking
	seen := map[string]bool{}

	doc.Find("div.panel.paper").Each(func(i int, panel *goquery.Selection) {
		id, _ := panel.Attr("id")
		id = fetcher.CleanID(id)
		if id == "" || seen[id] {
			return
		}

		title := text(panel.Find("a.title-link").First())
		if title == "" {
			return
		}
		seen[id] = true

		rank := i + 1
		if m := rankExpr.FindStringSubmatch(panel.Find("span.index").First().Text()); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				rank = n
			}
		}

		pdfURL, _ := panel.Find("a.title-pdf").First().Attr("data")

		var authors []string
		panel.Find("p.metainfo.authors a.author").Each(func(_ int, a *goquery.Selection) {
			if name := text(a); name != "" {
				authors = append(authors, name)
			}
		})

		var subjects []string
		panel.Find("p.metainfo.subjects a").Each(func(_ int, a *goquery.Selection) {
			if s := text(a); s != "" {
				subjects = append(subjects, s)
			}
		})

		rankings = append(rankings, Ranking{
			ID:       id,
			Rank:     rank,
			Title:    title,
			Authors:  authors,
			Abstract: text(panel.Find("p.summary").First()),
			Subjects: subjects,
			PDFURL:   strings.TrimSpace(pdfURL),
		})
	})

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Rank < rankings[j].Rank
	})
	return rankings, nil
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}
