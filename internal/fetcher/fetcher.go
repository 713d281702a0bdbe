package fetcher

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Paper is the arXiv metadata of one paper.
type Paper struct {
	ID         string
	Title      string
	Authors    []string
	Abstract   string
	URL        string
	PDFURL     string
	Published  time.Time
	Categories []string
}

// PrimaryCategory is the first listed category. The fetcher puts arXiv's
// primary category first.
func (p Paper) PrimaryCategory() string {
	if len(p.Categories) == 0 {
		return ""
	}
	return p.Categories[0]
}

// Fetcher retrieves paper metadata from arXiv.
type Fetcher interface {
	// FetchByIDs returns metadata for the given identifiers in the order
	// given. Unknown identifiers are absent from the result.
	FetchByIDs(ctx context.Context, ids []string) ([]Paper, error)
	// ListByDate returns the papers of a category submitted on day.
	ListByDate(ctx context.Context, category string, day time.Time, maxResults int) ([]Paper, error)
}

var versionSuffix = regexp.MustCompile(`^(.+?)v\d+$`)

// CleanID strips a trailing version marker: "2501.12345v2" -> "2501.12345".
func CleanID(id string) string {
	id = strings.TrimSpace(id)
	if m := versionSuffix.FindStringSubmatch(id); m != nil {
		return m[1]
	}
	return id
}

// IDFromURL extracts the identifier from an abs or pdf URL.
func IDFromURL(u string) string {
	for _, marker := range []string{"/abs/", "/pdf/"} {
		if i := strings.Index(u, marker); i >= 0 {
			return CleanID(strings.TrimSuffix(u[i+len(marker):], ".pdf"))
		}
	}
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return CleanID(u[i+1:])
	}
	return CleanID(u)
}

// AbsURL is the canonical abstract page of id.
func AbsURL(id string) string {
	return "https://arxiv.org/abs/" + id
}

// PDFURL is the canonical PDF location of id.
func PDFURL(id string) string {
	return "https://arxiv.org/pdf/" + id
}
