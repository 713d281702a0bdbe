// Package digest holds the report produced by a run and its renderings.
package digest

import (
	"fmt"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

// Kind is the report cadence.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

// ParseKind validates a mode name from the command line.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDaily, KindWeekly, KindMonthly:
		return k, nil
	}
	return "", fmt.Errorf("digest: unknown mode %q (supported: daily, weekly, monthly)", s)
}

// DetailedReport is the six-section analysis of a paper.
type DetailedReport struct {
	Background   string `json:"background"`
	Methods      string `json:"methods"`
	Innovations  string `json:"innovations"`
	Results      string `json:"results"`
	Limitations  string `json:"limitations"`
	Applications string `json:"applications"`
}

// Section is one titled part of a DetailedReport.
type Section struct {
	Title string
	Body  string
}

// Sections lists the non-empty sections in display order.
func (r *DetailedReport) Sections() []Section {
	all := []Section{
		{"研究背景", r.Background},
		{"核心方法", r.Methods},
		{"主要创新", r.Innovations},
		{"实验结果", r.Results},
		{"局限性", r.Limitations},
		{"应用价值", r.Applications},
	}
	out := all[:0]
	for _, s := range all {
		if s.Body != "" {
			out = append(out, s)
		}
	}
	return out
}

// Empty reports whether no section has content.
func (r *DetailedReport) Empty() bool {
	return r == nil || len(r.Sections()) == 0
}

// Entry is one processed paper.
type Entry struct {
	Rank            int
	Paper           fetcher.Paper
	ChineseTitle    string
	ChineseAbstract string
	Report          *DetailedReport
	BasicSummary    string
	Keywords        []string
	Reason          string
}

// Stat is a named count used in period statistics.
type Stat struct {
	Name  string
	Count int
}

// Report is everything one run publishes.
type Report struct {
	RunID    string
	Kind     Kind
	Category string
	Window   calendar.Window
	Created  time.Time

	Entries []Entry

	// Period reports only.
	Overview      string
	TotalPapers   int
	TopCategories []Stat
	TopKeywords   []Stat
}

// Title is the page title, e.g. "Daily arXiv (cs.CL) - 2025-01-15".
func (r *Report) Title() string {
	switch r.Kind {
	case KindWeekly:
		return fmt.Sprintf("Weekly arXiv (%s) - %s", r.Category, r.Window)
	case KindMonthly:
		return fmt.Sprintf("Monthly arXiv (%s) - %s", r.Category, r.Window.Start.Format("2006-01"))
	default:
		return fmt.Sprintf("Daily arXiv (%s) - %s", r.Category, r.Window.Start.Format(calendar.Layout))
	}
}

// DetailedCount is the number of entries carrying a six-section report.
func (r *Report) DetailedCount() int {
	n := 0
	for _, e := range r.Entries {
		if !e.Report.Empty() {
			n++
		}
	}
	return n
}
