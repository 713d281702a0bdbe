package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ryosukesatoh/daily-arxiv/internal/config"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

// Publisher publishes a report to some output destination and returns an
// identifier for what it created (a page id, a URL), possibly empty.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, report *digest.Report) (string, error)
}

// FromConfig builds the publishers named in cfg.Publishers, in order.
func FromConfig(cfg *config.Config, logger *slog.Logger) ([]Publisher, error) {
	retryCfg := retry.Config{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay, MaxDelay: cfg.Retry.MaxDelay}

	var pubs []Publisher
	for _, name := range cfg.Publishers {
		switch name {
		case "notion":
			pubs = append(pubs, NewNotionPublisher(cfg.Notion.APIKey, cfg.Notion.BaseURL, cfg.Notion.DatabaseID, cfg.Notion.ParentPageID, retryCfg, logger))
		case "stdout":
			pubs = append(pubs, NewStdoutPublisher())
		case "discord":
			pubs = append(pubs, NewDiscordPublisher(cfg.Discord.WebhookURL, retryCfg))
		case "email":
			e := cfg.Email
			pubs = append(pubs, NewEmailPublisher(e.SMTPHost, e.SMTPPort, e.Username, e.Password, e.From, e.To))
		case "web":
			pubs = append(pubs, NewWebPublisher(cfg.Web.Addr, logger))
		default:
			return nil, fmt.Errorf("publisher: unknown publisher %q", name)
		}
	}
	return pubs, nil
}
