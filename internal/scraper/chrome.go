package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
)

const (
	paperSelector = "div.panel.paper"
	// stableRounds is how many scrolls without new panels end the loop.
	stableRounds = 3
	// firstPaperWait bounds the wait for the first rendered panel. A date
	// without papers never renders one.
	firstPaperWait = 30 * time.Second
)

// scrollTracker decides when the infinite list has stopped growing. The idle
// count resets whenever a scroll brings in new panels; maxScrolls is only a
// safety cap on the total.
type scrollTracker struct {
	maxScrolls int
	scrolls    int
	last       int
	idle       int
}

// observe records the panel count after a scroll and reports whether to
// scroll again.
func (t *scrollTracker) observe(count int) bool {
	t.scrolls++
	if count > t.last {
		t.last = count
		t.idle = 0
	} else {
		t.idle++
	}
	if t.idle >= stableRounds {
		return false
	}
	return t.maxScrolls <= 0 || t.scrolls < t.maxScrolls
}

// ChromeLoader renders a page in headless Chrome, waits for the first paper
// panel and scrolls until the infinite list stops growing.
type ChromeLoader struct {
	headless   bool
	maxScrolls int
	scrollWait time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

func NewChromeLoader(headless bool, maxScrolls int, timeout time.Duration, logger *slog.Logger) *ChromeLoader {
	return &ChromeLoader{
		headless:   headless,
		maxScrolls: maxScrolls,
		scrollWait: 1500 * time.Millisecond,
		timeout:    timeout,
		logger:     logging.OrDiscard(logger).With("component", "chrome"),
	}
}

func (l *ChromeLoader) Load(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", l.headless))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, l.timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(pageURL)); err != nil {
		return "", fmt.Errorf("chrome: navigate: %w", err)
	}

	waitCtx, cancelWait := context.WithTimeout(runCtx, firstPaperWait)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(paperSelector, chromedp.ByQuery))
	cancelWait()
	switch {
	case err == nil:
		if err := l.scrollToEnd(runCtx); err != nil {
			return "", err
		}
	case runCtx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		l.logger.Warn("no papers rendered", "url", pageURL, "waited", firstPaperWait)
	default:
		return "", fmt.Errorf("chrome: wait for papers: %w", err)
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("chrome: read document: %w", err)
	}
	return html, nil
}

// scrollToEnd scrolls until stableRounds scrolls bring no new panels.
func (l *ChromeLoader) scrollToEnd(ctx context.Context) error {
	tracker := &scrollTracker{maxScrolls: l.maxScrolls}
	for {
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(l.scrollWait),
		); err != nil {
			return fmt.Errorf("chrome: scroll: %w", err)
		}

		var count int
		if err := chromedp.Run(ctx,
			chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%q).length`, paperSelector), &count),
		); err != nil {
			return fmt.Errorf("chrome: count papers: %w", err)
		}
		l.logger.Debug("scroll", "attempt", tracker.scrolls+1, "papers", count)

		if !tracker.observe(count) {
			break
		}
	}
	if tracker.idle < stableRounds {
		l.logger.Warn("stopped scrolling at the safety cap", "scrolls", tracker.scrolls, "papers", tracker.last)
	}
	l.logger.Info("page rendered", "papers", tracker.last, "scrolls", tracker.scrolls)
	return nil
}
