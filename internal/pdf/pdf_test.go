package pdf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
)

func testDownloader(t *testing.T, ts *httptest.Server, maxBytes int64) *Downloader {
	t.Helper()
	return &Downloader{
		client:   ts.Client(),
		dir:      t.TempDir(),
		maxBytes: maxBytes,
		retry:    retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond},
	}
}

func TestDownloadWithinLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 small"))
	}))
	defer ts.Close()

	d := testDownloader(t, ts, 1024)
	path, err := d.Download(context.Background(), "hep-th/9901001", ts.URL)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "hep-th_9901001.pdf" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "%PDF-1.4 small" {
		t.Fatalf("Unexpected file content %q (err %v)", data, err)
	}

	if err := d.Remove(path); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected file removed")
	}
	if err := d.Remove(path); err != nil {
		t.Errorf("Expected removing a missing file to succeed, got %v", err)
	}
}

func TestDownloadRejectsByContentLength(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Length", "4096")
		w.Write(make([]byte, 4096))
	}))
	defer ts.Close()

	d := testDownloader(t, ts, 1024)
	_, err := d.Download(context.Background(), "2501.00001", ts.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected oversized file not to be retried, got %d calls", calls.Load())
	}
	assertEmptyDir(t, d.dir)
}

func TestDownloadRejectsWhileStreaming(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		chunk := make([]byte, 512)
		for i := 0; i < 8; i++ {
			w.Write(chunk)
			flusher.Flush()
		}
	}))
	defer ts.Close()

	d := testDownloader(t, ts, 1024)
	_, err := d.Download(context.Background(), "2501.00001", ts.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Expected ErrTooLarge, got %v", err)
	}
	assertEmptyDir(t, d.dir)
}

func TestDownloadRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("%PDF"))
	}))
	defer ts.Close()

	d := testDownloader(t, ts, 0)
	if _, err := d.Download(context.Background(), "2501.00001", ts.URL); err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no leftover files, found %d", len(entries))
	}
}

const paperText = `Attention Is Enough
Jane Doe

Abstract
We propose a model
that reasons.

1 Introduction
Language models are everywhere.

2 Related Work
Prior art.

3 Methods
We train with RL.

4 Experiments
Tables.

5. Conclusion
It works.
`

func TestSections(t *testing.T) {
	sections := Sections(paperText)
	tests := map[string]string{
		"abstract":     "We propose a model that reasons.",
		"introduction": "Language models are everywhere.",
		"related work": "Prior art.",
		"method":       "We train with RL.",
		"experiments":  "Tables.",
		"conclusion":   "It works.",
	}
	for name, want := range tests {
		if got := sections[name]; got != want {
			t.Errorf("section %q = %q, want %q", name, got, want)
		}
	}
}

func TestPrioritizeOrder(t *testing.T) {
	got := Prioritize(paperText, 0)
	want := "We propose a model that reasons. Language models are everywhere. It works. We train with RL."
	if got != want {
		t.Errorf("Prioritize = %q, want %q", got, want)
	}
}

func TestPrioritizeFallbackAndTruncate(t *testing.T) {
	raw := "No   headings\nhere at all, 中文文本"
	if got := Prioritize(raw, 0); got != "No headings here at all, 中文文本" {
		t.Errorf("Expected cleaned full text, got %q", got)
	}
	if got := Prioritize(raw, 27); got != "No headings here at all, 中文" {
		t.Errorf("Expected rune-safe truncation, got %q", got)
	}
}

func TestExtractorRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewExtractor(100).Extract(path)
	if err == nil {
		t.Fatal("Expected error for invalid PDF")
	}
	if !strings.HasPrefix(err.Error(), "pdf:") {
		t.Errorf("Expected pdf: prefix, got %v", err)
	}
}
