package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

const (
	notionVersion = "2022-06-28"
	// notionBatchSize is the most children one request may carry.
	notionBatchSize = 100
)

type notionParent struct {
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

type notionTitleProperty struct {
	Title []richText `json:"title"`
}

type notionPageRequest struct {
	Parent     notionParent                   `json:"parent"`
	Properties map[string]notionTitleProperty `json:"properties"`
	Children   []notionBlock                  `json:"children,omitempty"`
}

type notionAppendRequest struct {
	Children []notionBlock `json:"children"`
}

type notionPage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// NotionPublisher creates one Notion page per report.
type NotionPublisher struct {
	apiKey       string
	baseURL      string
	databaseID   string
	parentPageID string
	client       *http.Client
	retryConfig  retry.Config
	logger       *slog.Logger
}

// NewNotionPublisher creates a publisher that files pages under databaseID,
// or under parentPageID when no database is given.
func NewNotionPublisher(apiKey, baseURL, databaseID, parentPageID string, retryCfg retry.Config, logger *slog.Logger) *NotionPublisher {
	return &NotionPublisher{
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		databaseID:   databaseID,
		parentPageID: parentPageID,
		client:       &http.Client{Timeout: 30 * time.Second},
		retryConfig:  retryCfg,
		logger:       logging.OrDiscard(logger).With("component", "notion"),
	}
}

func (n *NotionPublisher) Name() string { return "notion" }

// Publish creates the page with the first batch of blocks and appends the
// rest in batches of 100. It returns the new page id.
func (n *NotionPublisher) Publish(ctx context.Context, report *digest.Report) (string, error) {
	blocks := reportBlocks(report)
	first := blocks[:min(len(blocks), notionBatchSize)]

	page, err := n.createPage(ctx, report.Title(), first)
	if err != nil {
		return "", err
	}
	n.logger.Info("created page", "page_id", page.ID, "title", report.Title(), "blocks", len(blocks))

	rest := blocks[len(first):]
	for i := 0; len(rest) > 0; i++ {
		batch := rest[:min(len(rest), notionBatchSize)]
		if err := n.appendBlocks(ctx, page.ID, batch); err != nil {
			return page.ID, fmt.Errorf("notion: failed to append batch %d to page %s: %w", i+1, page.ID, err)
		}
		n.logger.Debug("appended blocks", "page_id", page.ID, "batch", i+1, "count", len(batch))
		rest = rest[len(batch):]
	}
	return page.ID, nil
}

func (n *NotionPublisher) createPage(ctx context.Context, title string, children []notionBlock) (*notionPage, error) {
	req := notionPageRequest{
		Properties: map[string]notionTitleProperty{
			"title": {Title: splitRichText(title, false, "")},
		},
		Children: children,
	}
	if n.databaseID != "" {
		req.Parent.DatabaseID = n.databaseID
	} else {
		req.Parent.PageID = n.parentPageID
	}

	var page notionPage
	err := retry.WithBackoff(ctx, n.retryConfig, func(ctx context.Context) error {
		return sendJSON(ctx, n.client, "notion", http.MethodPost, n.baseURL+"/pages", n.headers(), req, &page)
	})
	if err != nil {
		return nil, fmt.Errorf("notion: failed to create page: %w", err)
	}
	if page.ID == "" {
		return nil, errors.New("notion: create page response has no id")
	}
	return &page, nil
}

func (n *NotionPublisher) appendBlocks(ctx context.Context, pageID string, blocks []notionBlock) error {
	url := fmt.Sprintf("%s/blocks/%s/children", n.baseURL, pageID)
	return retry.WithBackoff(ctx, n.retryConfig, func(ctx context.Context) error {
		return sendJSON(ctx, n.client, "notion", http.MethodPatch, url, n.headers(), notionAppendRequest{Children: blocks}, nil)
	})
}

func (n *NotionPublisher) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+n.apiKey)
	h.Set("Notion-Version", notionVersion)
	return h
}
