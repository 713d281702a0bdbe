package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

// ArxivFetcher fetches paper metadata from the arXiv API.
type ArxivFetcher struct {
	client    *http.Client
	baseURL   string
	delay     time.Duration
	batchSize int
	retry     retry.Config
	logger    *slog.Logger
}

func NewArxivFetcher(baseURL string, delay time.Duration, batchSize int, retryCfg retry.Config, logger *slog.Logger) *ArxivFetcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ArxivFetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		baseURL:   baseURL,
		delay:     delay,
		batchSize: batchSize,
		retry:     retryCfg,
		logger:    logging.OrDiscard(logger).With("component", "arxiv"),
	}
}

func (f *ArxivFetcher) FetchByIDs(ctx context.Context, ids []string) ([]Paper, error) {
	clean := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = CleanID(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	if len(clean) == 0 {
		return nil, nil
	}

	f.log().Info("fetching metadata", "ids", len(clean), "batch_size", f.batchSize)

	byID := make(map[string]Paper, len(clean))
	for start := 0; start < len(clean); start += f.batchSize {
		end := min(start+f.batchSize, len(clean))

		query := url.Values{}
		query.Set("id_list", strings.Join(clean[start:end], ","))
		query.Set("start", "0")
		query.Set("max_results", strconv.Itoa(end-start))

		papers, err := f.query(ctx, query)
		if err != nil {
			return nil, err
		}
		for _, p := range papers {
			byID[p.ID] = p
		}
	}

	result := make([]Paper, 0, len(byID))
	for _, id := range clean {
		if p, ok := byID[id]; ok {
			result = append(result, p)
		}
	}
	f.log().Info("fetched metadata", "requested", len(clean), "found", len(result))
	return result, nil
}

func (f *ArxivFetcher) ListByDate(ctx context.Context, category string, day time.Time, maxResults int) ([]Paper, error) {
	stamp := day.Format("20060102")
	query := url.Values{}
	query.Set("search_query", fmt.Sprintf("cat:%s AND submittedDate:[%s0000 TO %s2359]", category, stamp, stamp))
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "ascending")

	return f.query(ctx, query)
}

// query waits the fixed inter-request delay, then runs one API call with retry.
func (f *ArxivFetcher) query(ctx context.Context, query url.Values) ([]Paper, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	reqURL := fmt.Sprintf("%s?%s", f.baseURL, query.Encode())

	var body []byte
	err := retry.WithBackoff(ctx, f.retry, func(ctx context.Context) error {
		var err error
		body, err = f.get(ctx, reqURL)
		if err != nil {
			f.log().Warn("arxiv request failed", "error", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return parseFeed(body)
}

func (f *ArxivFetcher) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("arxiv: failed to create request: %w", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{Service: "arxiv", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}
	return body, nil
}

func (f *ArxivFetcher) log() *slog.Logger {
	if f.logger == nil {
		return logging.Discard()
	}
	return f.logger
}

func parseFeed(body []byte) ([]Paper, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		if strings.Contains(item.GUID, "/api/errors") {
			continue
		}
		id := IDFromURL(item.GUID)
		if id == "" {
			continue
		}

		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a == nil {
				continue
			}
			if name := strings.TrimSpace(a.Name); name != "" {
				authors = append(authors, name)
			}
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}

		pdfURL := ""
		for _, link := range item.Links {
			if strings.Contains(link, "/pdf/") {
				pdfURL = strings.Replace(link, "http://", "https://", 1)
				break
			}
		}
		if pdfURL == "" {
			pdfURL = PDFURL(id)
		}

		papers = append(papers, Paper{
			ID:         id,
			Title:      collapse(item.Title),
			Authors:    authors,
			Abstract:   collapse(item.Description),
			URL:        AbsURL(id),
			PDFURL:     pdfURL,
			Published:  published,
			Categories: withPrimary(item.Categories, primaryCategory(item)),
		})
	}

	return papers, nil
}

// primaryCategory reads the arxiv:primary_category extension of an entry.
func primaryCategory(item *gofeed.Item) string {
	for _, e := range item.Extensions["arxiv"]["primary_category"] {
		if term := strings.TrimSpace(e.Attrs["term"]); term != "" {
			return term
		}
	}
	return ""
}

// withPrimary returns categories with primary moved, or added, to the front.
func withPrimary(categories []string, primary string) []string {
	if primary == "" {
		return categories
	}
	out := make([]string, 0, len(categories)+1)
	out = append(out, primary)
	for _, c := range categories {
		if c != primary {
			out = append(out, c)
		}
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
