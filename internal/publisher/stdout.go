package publisher

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
)

const stdoutWidth = 72

// StdoutPublisher prints the report as wrapped plain text. Widths are measured
// in terminal columns so Chinese text wraps correctly.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher() *StdoutPublisher {
	return &StdoutPublisher{w: os.Stdout}
}

func (p *StdoutPublisher) Name() string { return "stdout" }

func (p *StdoutPublisher) Publish(_ context.Context, report *digest.Report) (string, error) {
	var sb strings.Builder
	rule := strings.Repeat("=", stdoutWidth)

	sb.WriteString(rule + "\n")
	sb.WriteString(center(report.Title(), stdoutWidth) + "\n")
	sb.WriteString(rule + "\n\n")

	if report.Kind != digest.KindDaily {
		fmt.Fprintf(&sb, "%s · %d papers\n\n", report.Window, report.TotalPapers)
		if report.Overview != "" {
			sb.WriteString("概览:\n")
			writeWrapped(&sb, report.Overview, "  ")
			sb.WriteString("\n")
		}
		writeStatLine(&sb, "热门分类", report.TopCategories)
		writeStatLine(&sb, "热门关键词", report.TopKeywords)
	}

	for _, e := range report.Entries {
		sb.WriteString(strings.Repeat("-", stdoutWidth) + "\n")
		writeWrapped(&sb, fmt.Sprintf("%d. %s", e.Rank, e.Paper.Title), "")
		if e.ChineseTitle != "" {
			writeWrapped(&sb, e.ChineseTitle, "   ")
		}
		if len(e.Paper.Authors) > 0 {
			writeWrapped(&sb, "Authors: "+strings.Join(e.Paper.Authors, ", "), "   ")
		}
		if e.Paper.PDFURL != "" {
			fmt.Fprintf(&sb, "   PDF: %s\n", e.Paper.PDFURL)
		}
		if len(e.Keywords) > 0 {
			writeWrapped(&sb, "Keywords: "+strings.Join(e.Keywords, ", "), "   ")
		}
		sb.WriteString("\n")
		if e.ChineseAbstract != "" {
			writeWrapped(&sb, e.ChineseAbstract, "   ")
			sb.WriteString("\n")
		}
		if !e.Report.Empty() {
			for _, s := range e.Report.Sections() {
				writeWrapped(&sb, "【"+s.Title+"】"+s.Body, "   ")
			}
			sb.WriteString("\n")
		} else if e.BasicSummary != "" {
			writeWrapped(&sb, e.BasicSummary, "   ")
			sb.WriteString("\n")
		}
	}
	sb.WriteString(rule + "\n")

	if _, err := io.WriteString(p.w, sb.String()); err != nil {
		return "", fmt.Errorf("stdout: write failed: %w", err)
	}
	return "", nil
}

func writeStatLine(sb *strings.Builder, label string, stats []digest.Stat) {
	if len(stats) == 0 {
		return
	}
	writeWrapped(sb, label+": "+formatStats(stats), "")
	sb.WriteString("\n")
}

// writeWrapped writes text wrapped at stdoutWidth columns. Latin text breaks
// at spaces; CJK text may break between any two characters.
func writeWrapped(sb *strings.Builder, text, indent string) {
	width := stdoutWidth - runewidth.StringWidth(indent)
	for _, para := range strings.Split(text, "\n") {
		line, lineWidth := "", 0
		for _, word := range splitWords(para) {
			w := runewidth.StringWidth(word)
			if lineWidth > 0 && lineWidth+w > width {
				sb.WriteString(indent + strings.TrimRight(line, " ") + "\n")
				line, lineWidth = "", 0
				word = strings.TrimLeft(word, " ")
				w = runewidth.StringWidth(word)
			}
			line += word
			lineWidth += w
		}
		sb.WriteString(indent + strings.TrimRight(line, " ") + "\n")
	}
}

// splitWords splits s into wrap units: each wide rune on its own, narrow runs
// together with their trailing space.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	for _, r := range s {
		switch {
		case runewidth.RuneWidth(r) == 2:
			if cur.Len() > 0 {
				words = append(words, cur.String())
				cur.Reset()
			}
			words = append(words, string(r))
		case r == ' ':
			cur.WriteRune(r)
			words = append(words, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		words = append(words, cur.String())
	}
	return words
}

func center(s string, width int) string {
	pad := (width - runewidth.StringWidth(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
