package digest

import (
	"fmt"
	stdhtml "html"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders the report as a markdown document.
func (r *Report) Markdown() string {
	return r.markdown(func(s string) string { return s })
}

// htmlText neutralises tags in paper and model text before it is rendered
// to HTML, keeping the characters visible.
var htmlText = strings.NewReplacer("<", "&lt;", ">", "&gt;").Replace

// markdown writes the document, passing every untrusted string through text.
func (r *Report) markdown(text func(string) string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title())

	if r.Kind != KindDaily {
		fmt.Fprintf(&sb, "*%s · %d papers*\n\n", r.Window, r.TotalPapers)
		if r.Overview != "" {
			fmt.Fprintf(&sb, "## 概览\n\n%s\n\n", text(r.Overview))
		}
		writeStats(&sb, "热门分类", r.TopCategories, text)
		writeStats(&sb, "热门关键词", r.TopKeywords, text)
		if len(r.Entries) > 0 {
			sb.WriteString("## 兴趣相关论文\n\n")
		}
	}

	for _, e := range r.Entries {
		title := text(e.Paper.Title)
		if e.Paper.PDFURL != "" {
			title = fmt.Sprintf("[%s](%s)", escape(title), e.Paper.PDFURL)
		} else {
			title = escape(title)
		}
		fmt.Fprintf(&sb, "%d. **%s**\n", e.Rank, title)
		if e.ChineseTitle != "" {
			fmt.Fprintf(&sb, "   %s\n", text(e.ChineseTitle))
		}
		sb.WriteString("\n")
		if len(e.Paper.Authors) > 0 {
			fmt.Fprintf(&sb, "   *Authors: %s*\n\n", text(strings.Join(e.Paper.Authors, ", ")))
		}
		if len(e.Keywords) > 0 {
			fmt.Fprintf(&sb, "   Keywords: %s\n\n", text(strings.Join(e.Keywords, ", ")))
		}
		if e.ChineseAbstract != "" {
			fmt.Fprintf(&sb, "   %s\n\n", text(e.ChineseAbstract))
		}
		if !e.Report.Empty() {
			for _, s := range e.Report.Sections() {
				fmt.Fprintf(&sb, "   **%s**: %s\n\n", s.Title, text(s.Body))
			}
		} else if e.BasicSummary != "" {
			fmt.Fprintf(&sb, "   > %s\n\n", text(e.BasicSummary))
		}
	}
	return sb.String()
}

func writeStats(sb *strings.Builder, heading string, stats []Stat, text func(string) string) {
	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", heading)
	for _, s := range stats {
		fmt.Fprintf(sb, "- %s (%d)\n", text(s.Name), s.Count)
	}
	sb.WriteString("\n")
}

func escape(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`).Replace(s)
}

// HTMLBody renders the markdown report to an HTML fragment. Raw HTML never
// reaches the output and links are limited to safe schemes.
func (r *Report) HTMLBody() string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	flags := html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.Safelink
	renderer := html.NewRenderer(html.RendererOptions{Flags: flags})
	return string(markdown.ToHTML([]byte(r.markdown(htmlText)), p, renderer))
}

const pageStyle = `<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 760px; margin: 0 auto; padding: 20px; color: #333; }
h1 { color: #1a1a2e; border-bottom: 2px solid #e94560; padding-bottom: 10px; }
h2 { color: #16213e; }
li { margin-bottom: 12px; }
blockquote { color: #555; border-left: 3px solid #ddd; margin-left: 0; padding-left: 12px; }
</style>`

// HTMLPage wraps HTMLBody in a standalone document.
func (r *Report) HTMLPage() string {
	return fmt.Sprintf("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>%s</title>%s</head><body>%s</body></html>",
		stdhtml.EscapeString(r.Title()), pageStyle, r.HTMLBody())
}
