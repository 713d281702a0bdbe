package publisher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

type discordEmbedFooter struct {
	Text string `json:"text"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string              `json:"title,omitempty"`
	URL         string              `json:"url,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      *discordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// DiscordPublisher publishes reports to a Discord channel via webhook.
type DiscordPublisher struct {
	webhookURL  string
	client      *http.Client
	retryConfig retry.Config
	batchDelay  time.Duration
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string, retryCfg retry.Config) *DiscordPublisher {
	return &DiscordPublisher{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 30 * time.Second},
		retryConfig: retryCfg,
		batchDelay:  500 * time.Millisecond,
	}
}

func (d *DiscordPublisher) Name() string { return "discord" }

// Publish sends the report to Discord as a series of rich embeds.
func (d *DiscordPublisher) Publish(ctx context.Context, report *digest.Report) (string, error) {
	embeds := d.buildEmbeds(report)
	batches := batchEmbeds(embeds)

	for i, batch := range batches {
		err := retry.WithBackoff(ctx, d.retryConfig, func(ctx context.Context) error {
			return sendJSON(ctx, d.client, "discord", http.MethodPost, d.webhookURL, nil, discordWebhookPayload{Embeds: batch}, nil)
		})
		if err != nil {
			return "", fmt.Errorf("discord: failed to send batch %d: %w", i+1, err)
		}

		// Delay between batches to avoid rate limits.
		if i < len(batches)-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(d.batchDelay):
			}
		}
	}
	return "", nil
}

// buildEmbeds creates the header embed and one embed per paper.
func (d *DiscordPublisher) buildEmbeds(report *digest.Report) []discordEmbed {
	embeds := make([]discordEmbed, 0, len(report.Entries)+1)

	header := discordEmbed{
		Title:     truncate(report.Title(), 256),
		Color:     0xB31B1B, // arXiv red
		Footer:    &discordEmbedFooter{Text: report.Window.String()},
		Timestamp: report.Created.Format(time.RFC3339),
	}
	if report.Kind == digest.KindDaily {
		header.Description = fmt.Sprintf("%d papers, %d with detailed analysis", len(report.Entries), report.DetailedCount())
	} else {
		header.Description = truncate(report.Overview, 4096)
		if len(report.TopCategories) > 0 {
			header.Fields = append(header.Fields, discordEmbedField{Name: "热门分类", Value: truncate(formatStats(report.TopCategories), 1024), Inline: true})
		}
		if len(report.TopKeywords) > 0 {
			header.Fields = append(header.Fields, discordEmbedField{Name: "热门关键词", Value: truncate(formatStats(report.TopKeywords), 1024), Inline: true})
		}
	}
	embeds = append(embeds, header)

	for _, e := range report.Entries {
		title := e.Paper.Title
		if e.ChineseTitle != "" {
			title += " / " + e.ChineseTitle
		}
		embed := discordEmbed{
			Title:       truncate(fmt.Sprintf("%d. %s", e.Rank, title), 256),
			URL:         e.Paper.URL,
			Description: truncate(e.BasicSummary, 4096),
			Color:       0xB31B1B,
		}

		if !e.Report.Empty() {
			if embed.Description == "" {
				embed.Description = truncate(e.ChineseAbstract, 4096)
			}
			for _, s := range e.Report.Sections() {
				if len(embed.Fields) == 25 {
					break
				}
				embed.Fields = append(embed.Fields, discordEmbedField{Name: s.Title, Value: truncate(s.Body, 1024)})
			}
		}

		var footerParts []string
		if len(e.Paper.Authors) > 0 {
			footerParts = append(footerParts, strings.Join(e.Paper.Authors, ", "))
		}
		if c := e.Paper.PrimaryCategory(); c != "" {
			footerParts = append(footerParts, c)
		}
		if len(e.Keywords) > 0 {
			footerParts = append(footerParts, strings.Join(e.Keywords, ", "))
		}
		if len(footerParts) > 0 {
			embed.Footer = &discordEmbedFooter{Text: truncate(strings.Join(footerParts, " | "), 2048)}
		}

		embeds = append(embeds, embed)
	}

	return embeds
}

// batchEmbeds splits embeds into batches respecting Discord limits:
// max 10 embeds per message, max 6000 total characters per message.
func batchEmbeds(embeds []discordEmbed) [][]discordEmbed {
	var batches [][]discordEmbed
	var current []discordEmbed
	currentChars := 0

	for _, e := range embeds {
		ec := embedCharCount(e)

		if len(current) > 0 && (len(current) >= 10 || currentChars+ec > 6000) {
			batches = append(batches, current)
			current = nil
			currentChars = 0
		}

		current = append(current, e)
		currentChars += ec
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

// truncate shortens s to max characters, preferring a sentence boundary.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	cut := string(runes[:max-1])
	// Try to cut at a sentence boundary.
	if idx := strings.LastIndexAny(cut, ".!?。！？"); idx > len(cut)/2 {
		_, size := utf8.DecodeRuneInString(cut[idx:])
		return cut[:idx+size]
	}
	return cut + "\u2026"
}

func formatStats(stats []digest.Stat) string {
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = fmt.Sprintf("%s (%d)", s.Name, s.Count)
	}
	return strings.Join(parts, ", ")
}

// embedCharCount returns the total character count of an embed for batching purposes.
func embedCharCount(e discordEmbed) int {
	n := len(e.Title) + len(e.Description)
	for _, f := range e.Fields {
		n += len(f.Name) + len(f.Value)
	}
	if e.Footer != nil {
		n += len(e.Footer.Text)
	}
	return n
}