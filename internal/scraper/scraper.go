// Package scraper produces the ranked list of papers for a date.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
)

// Ranking is one paper as listed by the ranking source.
type Ranking struct {
	ID       string
	Rank     int
	Title    string
	Authors  []string
	Abstract string
	Subjects []string
	PDFURL   string
}

// Scraper returns the ranked papers of a category for one day, ordered by
// ascending rank. An empty result is not an error.
type Scraper interface {
	Rankings(ctx context.Context, category string, day time.Time) ([]Ranking, error)
}

// Loader returns the rendered HTML of a page.
type Loader interface {
	Load(ctx context.Context, pageURL string) (string, error)
}

// PapersCool scrapes the readership ranking published by papers.cool.
type PapersCool struct {
	baseURL string
	loader  Loader
	logger  *slog.Logger
}

func NewPapersCool(baseURL string, loader Loader, logger *slog.Logger) *PapersCool {
	return &PapersCool{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		loader:  loader,
		logger:  logging.OrDiscard(logger).With("component", "scraper"),
	}
}

// PageURL is the listing of category on day sorted by readership.
func (s *PapersCool) PageURL(category string, day time.Time) string {
	q := url.Values{}
	q.Set("date", day.Format("2006-01-02"))
	q.Set("sort", "1")
	return fmt.Sprintf("%s/arxiv/%s?%s", s.baseURL, url.PathEscape(category), q.Encode())
}

func (s *PapersCool) Rankings(ctx context.Context, category string, day time.Time) ([]Ranking, error) {
	pageURL := s.PageURL(category, day)
	s.logger.Info("loading ranking page", "url", pageURL)

	html, err := s.loader.Load(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("scraper: load %s: %w", pageURL, err)
	}

	rankings, err := ParsePapersCool(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if len(rankings) == 0 {
		s.logger.Warn("no papers on ranking page", "date", day.Format("2006-01-02"), "category", category)
	}
	s.logger.Info("parsed ranking page", "papers", len(rankings))
	return rankings, nil
}

// ArxivListing ranks the arXiv submissions of the day in API order. It is
// the fallback source when the ranking site is unavailable.
type ArxivListing struct {
	fetcher    fetcher.Fetcher
	maxResults int
}

func NewArxivListing(f fetcher.Fetcher, maxResults int) *ArxivListing {
	if maxResults <= 0 {
		maxResults = 500
	}
	return &ArxivListing{fetcher: f, maxResults: maxResults}
}

func (s *ArxivListing) Rankings(ctx context.Context, category string, day time.Time) ([]Ranking, error) {
	papers, err := s.fetcher.ListByDate(ctx, category, day, s.maxResults)
	if err != nil {
		return nil, fmt.Errorf("scraper: arxiv listing: %w", err)
	}

	rankings := make([]Ranking, 0, len(papers))
	for i, p := range papers {
		rankings = append(rankings, Ranking{
			ID:       p.ID,
			Rank:     i + 1,
			Title:    p.Title,
			Authors:  p.Authors,
			Abstract: p.Abstract,
			Subjects: p.Categories,
			PDFURL:   p.PDFURL,
		})
	}
	return rankings, nil
}
