package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

const userAgent = "daily-arxiv/1.0 (+https://github.com/ryosukesatoh/daily-arxiv)"

// HTTPLoader fetches a page with a plain GET. It sees only the server-rendered
// part of a page.
type HTTPLoader struct {
	client *http.Client
	retry  retry.Config
}

func NewHTTPLoader(timeout time.Duration, retryCfg retry.Config) *HTTPLoader {
	return &HTTPLoader{
		client: &http.Client{Timeout: timeout},
		retry:  retryCfg,
	}
}

func (l *HTTPLoader) Load(ctx context.Context, pageURL string) (string, error) {
	var body string
	err := retry.WithBackoff(ctx, l.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := l.client.Do(req)
		if err != nil {
			return fmt.Errorf("request document: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &retry.StatusError{Service: "scraper", StatusCode: resp.StatusCode}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		body = string(data)
		return nil
	})
	return body, err
}
