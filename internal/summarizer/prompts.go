package summarizer

import (
	"fmt"
	"strings"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

func titlePrompt(title string) string {
	return fmt.Sprintf(`Translate the following academic paper title into concise, accurate Simplified Chinese.
Keep established technical terms and model names in English where that is customary.
Reply with the translation only, no quotes or explanations.

Title: %s`, title)
}

func abstractPrompt(abstract string) string {
	return fmt.Sprintf(`Translate the following academic abstract into fluent Simplified Chinese.
Preserve every technical detail and number. Keep model names, dataset names and acronyms in English.
Reply with the translation only.

Abstract:
%s`, abstract)
}

func basicSummaryPrompt(p fetcher.Paper) string {
	return fmt.Sprintf(`You are a research assistant. Summarize the paper below in one Simplified Chinese paragraph
of 2-3 sentences: the problem, the approach, and the main result. Reply with the paragraph only.

Title: %s
Abstract: %s`, p.Title, p.Abstract)
}

func reportPrompt(p fetcher.Paper, text string) string {
	return fmt.Sprintf(`You are an expert reviewer writing a structured analysis of an arXiv paper for Chinese readers.

Title: %s
Authors: %s
Abstract: %s

Paper text (may be truncated):
%s

Write each section in Simplified Chinese, 2-4 sentences each, grounded in the paper text.
Respond in JSON with this exact structure:
{
  "background": "研究背景: the problem and why it matters",
  "methods": "核心方法: how the approach works",
  "innovations": "主要创新: what is new compared with prior work",
  "results": "实验结果: key experiments and numbers",
  "limitations": "局限性: weaknesses and open issues",
  "applications": "应用价值: where the work can be used"
}

Respond ONLY with valid JSON, no markdown fences or additional text.`,
		p.Title, strings.Join(p.Authors, ", "), p.Abstract, text)
}

// PeriodInput is the material for a weekly or monthly overview.
type PeriodInput struct {
	Kind          digest.Kind
	Window        string
	TotalPapers   int
	TopCategories []digest.Stat
	TopKeywords   []digest.Stat
	Highlights    []digest.Entry
}

func periodPrompt(in PeriodInput) string {
	var sb strings.Builder
	label := "week"
	if in.Kind == digest.KindMonthly {
		label = "month"
	}
	fmt.Fprintf(&sb, "You are a research analyst. Write a Simplified Chinese overview of this %s's arXiv papers (%s).\n\n", label, in.Window)
	fmt.Fprintf(&sb, "Total papers: %d\n", in.TotalPapers)
	sb.WriteString("Top categories: ")
	sb.WriteString(formatStats(in.TopCategories))
	sb.WriteString("\nTop title keywords: ")
	sb.WriteString(formatStats(in.TopKeywords))
	sb.WriteString("\n\nPapers matching the reader's interests:\n")
	if len(in.Highlights) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, e := range in.Highlights {
		summary := e.BasicSummary
		if summary == "" && e.Report != nil {
			summary = e.Report.Innovations
		}
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, e.Paper.Title, summary)
	}
	sb.WriteString(`
Cover: the main research trends, notable papers and why they matter, and what to watch next.
Use 3-5 short paragraphs. Reply with the overview only.`)
	return sb.String()
}

func formatStats(stats []digest.Stat) string {
	if len(stats) == 0 {
		return "(none)"
	}
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = fmt.Sprintf("%s (%d)", s.Name, s.Count)
	}
	return strings.Join(parts, ", ")
}
