package pdf

import (
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// Extractor turns a PDF file into prompt text capped at maxChars runes.
type Extractor struct {
	maxChars int
}

func NewExtractor(maxChars int) *Extractor {
	return &Extractor{maxChars: maxChars}
}

// Extract returns the most useful parts of the paper first: abstract,
// introduction, conclusion, then the method section. When no section
// headings are recognised the head of the document is used.
func (e *Extractor) Extract(path string) (string, error) {
	raw, err := e.readPages(path)
	if err != nil {
		return "", err
	}
	return Prioritize(raw, e.maxChars), nil
}

// readPages concatenates page texts. The pdf library panics on some
// malformed files, so that is turned into an error.
func (e *Extractor) readPages(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf: malformed document %s: %v", path, r)
		}
	}()

	f, r, err := lpdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	fonts := make(map[string]*lpdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("pdf: read page %d of %s: %w", i, path, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("pdf: no extractable text in %s", path)
	}
	return sb.String(), nil
}
