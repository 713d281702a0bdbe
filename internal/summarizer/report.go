package summarizer

import (
	"encoding/json"
	"strings"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
)

// sectionKeys maps header text to report fields. Both the Chinese titles and
// the JSON keys are accepted.
var sectionKeys = []struct {
	zh, en string
	field  func(*digest.DetailedReport) *string
}{
	{"研究背景", "background", func(r *digest.DetailedReport) *string { return &r.Background }},
	{"核心方法", "methods", func(r *digest.DetailedReport) *string { return &r.Methods }},
	{"主要创新", "innovations", func(r *digest.DetailedReport) *string { return &r.Innovations }},
	{"实验结果", "results", func(r *digest.DetailedReport) *string { return &r.Results }},
	{"局限性", "limitations", func(r *digest.DetailedReport) *string { return &r.Limitations }},
	{"应用价值", "applications", func(r *digest.DetailedReport) *string { return &r.Applications }},
}

// parseReport reads a six-section answer. JSON is tried first; otherwise the
// text is split at lines that start with a section header.
func parseReport(body string) *digest.DetailedReport {
	body = stripFences(body)

	var report digest.DetailedReport
	if err := json.Unmarshal([]byte(body), &report); err == nil && !report.Empty() {
		for _, k := range sectionKeys {
			f := k.field(&report)
			*f = stripLabel(*f, k.zh)
		}
		return &report
	}

	report = digest.DetailedReport{}
	var current *string
	var content []string
	flush := func() {
		if current != nil {
			*current = strings.TrimSpace(strings.Join(content, "\n"))
		}
		content = nil
	}

	for _, line := range strings.Split(body, "\n") {
		if f, rest, ok := headerLine(&report, line); ok {
			flush()
			current = f
			if rest != "" {
				content = append(content, rest)
			}
			continue
		}
		if current != nil {
			content = append(content, line)
		}
	}
	flush()
	return &report
}

// headerMarks are the markdown and numbering characters allowed in front of
// a section header, as in "### 一、研究背景" or "2. **Methods**".
const headerMarks = "#*>-–.、)）(（ \t0123456789一二三四五六七八九十"

// headerLine reports whether line starts a section. Text after the header on
// the same line ("**研究背景**: ...") is returned as rest. English keys count
// only when they stand alone or are followed by a colon, so body lines such as
// "Results show ..." stay in the current section.
func headerLine(r *digest.DetailedReport, line string) (*string, string, bool) {
	stripped := strings.TrimLeft(strings.TrimSpace(line), headerMarks)
	for _, k := range sectionKeys {
		if rest, ok := strings.CutPrefix(stripped, k.zh); ok {
			return k.field(r), strings.TrimSpace(strings.TrimLeft(rest, "*#:： ")), true
		}
		if len(stripped) < len(k.en) || !strings.EqualFold(stripped[:len(k.en)], k.en) {
			continue
		}
		rest := strings.TrimLeft(stripped[len(k.en):], "*# ")
		switch {
		case rest == "":
			return k.field(r), "", true
		case strings.HasPrefix(rest, ":"), strings.HasPrefix(rest, "："):
			return k.field(r), strings.TrimSpace(strings.TrimLeft(rest, "*:： ")), true
		}
	}
	return nil, "", false
}

// stripLabel removes a leading "研究背景:" echo of the prompt format.
func stripLabel(s, label string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, label); ok {
		return strings.TrimSpace(strings.TrimLeft(rest, ":： "))
	}
	return s
}

func stripFences(body string) string {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}
