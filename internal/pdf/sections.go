package pdf

import (
	"regexp"
	"strings"
)

var sectionNames = []string{
	"abstract",
	"introduction",
	"related work",
	"background",
	"method",
	"methodology",
	"approach",
	"experiments",
	"results",
	"discussion",
	"conclusion",
	"limitations",
	"future work",
}

// Sections splits raw page text at lines that consist of a known heading,
// optionally numbered ("1 Introduction", "3. Method"). Keys are lower case.
func Sections(raw string) map[string]string {
	lines := strings.Split(raw, "\n")
	sections := map[string]string{}

	current := ""
	var body strings.Builder
	flush := func() {
		if current != "" {
			if _, dup := sections[current]; !dup {
				sections[current] = clean(body.String())
			}
		}
		body.Reset()
	}

	for _, line := range lines {
		if name, ok := heading(line); ok {
			flush()
			current = name
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return sections
}

var numbering = regexp.MustCompile(`^(\d+(\.\d+)*|[ivx]+)\.?\s+`)

func heading(line string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(line))
	s = numbering.ReplaceAllString(s, "")
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "s")
	for _, name := range sectionNames {
		if s == name || s == strings.TrimSuffix(name, "s") {
			return name, true
		}
	}
	return "", false
}

// Prioritize orders the sections of raw for a language model and caps the
// result at maxChars runes.
func Prioritize(raw string, maxChars int) string {
	sections := Sections(raw)

	var parts []string
	for _, name := range []string{"abstract", "introduction", "conclusion"} {
		if s := sections[name]; s != "" {
			parts = append(parts, s)
		}
	}
	for _, name := range []string{"method", "approach", "methodology"} {
		if s := sections[name]; s != "" {
			parts = append(parts, s)
			break
		}
	}

	text := strings.Join(parts, "\n\n")
	if text == "" {
		text = raw
	}
	return truncate(clean(text), maxChars)
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
